package logfields

import (
	"errors"
	"testing"
	"time"
)

func TestAttrKeys(t *testing.T) {
	cases := map[string]string{
		Path("a.md").Key:          KeyPath,
		DocumentID("a").Key:       KeyDocumentID,
		RunID("r").Key:            KeyRunID,
		Stage("parse").Key:        KeyStage,
		Kind("youtube").Key:       KeyKind,
		Duration(time.Second).Key: KeyDurationMS,
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("key = %q, want %q", got, want)
		}
	}
}

func TestError(t *testing.T) {
	if v := Error(nil).Value.String(); v != "" {
		t.Errorf("nil error value = %q", v)
	}
	if v := Error(errors.New("boom")).Value.String(); v != "boom" {
		t.Errorf("error value = %q", v)
	}
	if v := Duration(1500 * time.Microsecond).Value.Float64(); v != 1.5 {
		t.Errorf("duration ms = %v", v)
	}
}
