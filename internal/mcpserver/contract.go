package mcpserver

// NoteFormat describes how Quire notes are stored so LLM consumers write
// content the editor and list views render sensibly.
const NoteFormat = `# Quire Note Format

A note has two user-visible fields.

- **title**: plain text, shown in the sidebar list. New notes start as ` + "`" + `Untitled Note` + "`" + `.
- **content**: an HTML fragment produced by a rich-text editor. It is stored and
  returned verbatim; Quire never rewrites it.

## Content rules

1. Use simple block elements: ` + "`" + `<p>` + "`" + `, ` + "`" + `<h1>` + "`" + `-` + "`" + `<h3>` + "`" + `, ` + "`" + `<ul>` + "`" + `/` + "`" + `<ol>` + "`" + ` with ` + "`" + `<li>` + "`" + `, ` + "`" + `<blockquote>` + "`" + `, ` + "`" + `<pre><code>` + "`" + `.
2. Inline formatting: ` + "`" + `<strong>` + "`" + `, ` + "`" + `<em>` + "`" + `, ` + "`" + `<u>` + "`" + `, ` + "`" + `<code>` + "`" + `, ` + "`" + `<a href>` + "`" + `.
3. No scripts, styles or embedded media.
4. The list preview shows the first 100 characters of the text with tags removed,
   so lead with a meaningful sentence.
5. Encoding is UTF-8.

## Example

` + "```" + `html
<h2>Weekly standup</h2>
<p>Attendees: Alice, Bob.</p>
<ul>
  <li><strong>Alice</strong> to review the design doc</li>
  <li>Bob to update the roadmap</li>
</ul>
` + "```" + `
`
