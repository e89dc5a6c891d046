package apperr

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestReadError_UnwrapAndMessage(t *testing.T) {
	err := error(&ReadError{Path: "posts/a/index.md", Err: fs.ErrPermission})
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("ReadError should unwrap to its cause")
	}
	var re *ReadError
	if !errors.As(err, &re) || re.Root {
		t.Fatalf("expected non-root ReadError, got %#v", err)
	}
	if !strings.Contains(err.Error(), "posts/a/index.md") {
		t.Errorf("message should name the path: %q", err.Error())
	}

	root := &ReadError{Path: "/srv/content", Root: true, Err: fs.ErrNotExist}
	if !strings.Contains(root.Error(), "content root") {
		t.Errorf("root message = %q", root.Error())
	}
}

func TestMalformedDocumentError_NamesField(t *testing.T) {
	err := &MalformedDocumentError{Path: "a.md", Field: "date", Err: errors.New("cannot be blank")}
	msg := err.Error()
	if !strings.Contains(msg, `"date"`) || !strings.Contains(msg, "a.md") {
		t.Errorf("message = %q", msg)
	}
}

func TestUnresolvedDirectiveWarning_Message(t *testing.T) {
	w := &UnresolvedDirectiveWarning{DocumentID: "posts/x", Kind: "tweet", Offset: 12}
	if !strings.Contains(w.Error(), "no resolver registered") {
		t.Errorf("message = %q", w.Error())
	}
	cause := errors.New("missing id")
	w.Err = cause
	if !errors.Is(w, cause) {
		t.Error("warning should unwrap to resolver error")
	}
}
