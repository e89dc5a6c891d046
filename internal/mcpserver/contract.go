package mcpserver

// FrontMatterSchema describes the header every content file starts with.
// It is served as the quill://front-matter resource.
const FrontMatterSchema = `# Quill front-matter

Every content file is Markdown with a YAML header between two ` + "`---`" + ` lines.
The header must be the first thing in the file.

## Fields

| Key          | Required | Type                    | Notes                                       |
|--------------|----------|-------------------------|---------------------------------------------|
| ` + "`title`" + `      | yes      | string                  | Must not be blank.                          |
| ` + "`date`" + `       | yes      | date                    | YYYY-MM-DD or RFC 3339; stored as the date. |
| ` + "`summary`" + `    | no       | string                  | Defaults to empty.                          |
| ` + "`categories`" + ` | no       | list or single string   | Trimmed, deduplicated, sorted.              |
| ` + "`tags`" + `       | no       | list or single string   | Same rules as categories.                   |
| ` + "`draft`" + `      | no       | bool                    | Drafts are readable by id but never listed. |

Any other key is kept as-is and returned under ` + "`extra`" + `.
Labels are case-sensitive: ` + "`Go`" + ` and ` + "`go`" + ` are different tags.

## Identifiers

A document's id is its path relative to the content root without ` + "`.md`" + `.
A file named ` + "`index.md`" + ` takes the id of its directory.

## Shortcodes

The body may embed widgets:

` + "```" + `
{{< youtube dQw4w9WgXcQ >}}
{{< vimeo id="12345" title="Intro" >}}
{{< figure src="/img/cover.png" alt="Cover" caption="Launch day" >}}
` + "```" + `

Unknown kinds render as a visible placeholder and are listed as warnings.
Write ` + "`{{</* youtube id */>}}`" + ` to show a shortcode literally.

## Example

` + "```" + `markdown
---
title: Nostr groups explained
summary: How relay-based groups work
date: 2024-03-09
categories: [Protocols]
tags: [nostr, cryptography]
---

Body text in standard Markdown.
` + "```" + `
`
