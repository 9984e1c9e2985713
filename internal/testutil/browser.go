package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/tomyan/foxcap/internal/jssh"
)

// Page is a document the fake browser can show.
type Page struct {
	URL    string
	Title  string
	HTML   string // innerHTML of the html element
	Text   string // body textContent
	Status string // status bar text

	// LoadPolls is how many times the loading flag reads true after the
	// page starts loading.
	LoadPolls int

	Refresh  *Refresh
	Elements []Node
	XPaths   map[string][]int // xpath -> indexes into Elements
}

// Refresh describes the page's first meta refresh.
type Refresh struct {
	Delay  int
	Target string
	// Stuck leaves the document in place after the refresh, as a download
	// would.
	Stuck bool
}

// Node is an element in a fake page.
type Node struct {
	Tag       string
	Interface string // e.g. "HTMLInputElement"
	Type      string
	Text      string
	Attrs     map[string]string // id, name, value, class, title, href, src
}

type fakeWindow struct {
	utility bool
	page    Page
	history []string
	pos     int
	loading int
	pending string
	status  string
	hooks   map[string]bool // popup hooks installed: "alert", "confirm"
	want    string
	answer  bool
	owner   string // prefix of the session that installed the hooks
}

// Browser is a fake JSSh host that interprets the scripts a foxcap session
// sends. It implements the session's evaluator interface directly and can
// back a Host through Handle.
type Browser struct {
	mu       sync.Mutex
	site     map[string]Page
	windows  []*fakeWindow
	bindings map[string]int // session prefix -> window index, -1 once closed
	popups   map[string]string
	scripts  []string
	closed   bool

	// QuitOnLastClose drops the channel once the last window closes.
	QuitOnLastClose bool
	// IgnoreClose makes window close requests do nothing.
	IgnoreClose bool
	// FailOpen makes window open requests report -1.
	FailOpen bool
	// Fallback answers scripts the model does not recognise.
	Fallback func(script string) (string, error)
}

// NewBrowser creates a fake browser serving pages from site, keyed by URL.
// It starts with no windows.
func NewBrowser(pages ...Page) *Browser {
	b := &Browser{
		site:     make(map[string]Page),
		bindings: make(map[string]int),
		popups:   make(map[string]string),
	}
	for _, p := range pages {
		b.site[p.URL] = p
	}
	return b
}

// AddPage adds or replaces a page.
func (b *Browser) AddPage(p Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.site[p.URL] = p
}

// OpenWindow adds a browser window showing url, already loaded, and returns
// its index.
func (b *Browser) OpenWindow(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &fakeWindow{}
	b.windows = append(b.windows, w)
	b.load(w, url, true)
	w.loading = 0
	return len(b.windows) - 1
}

// OpenUtilityWindow adds a window without browser control, such as the
// download manager.
func (b *Browser) OpenUtilityWindow() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows = append(b.windows, &fakeWindow{utility: true})
	return len(b.windows) - 1
}

// CloseWindow closes window i as if the user or page had closed it.
func (b *Browser) CloseWindow(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeWindow(i)
}

// WindowCount returns the number of open windows.
func (b *Browser) WindowCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// WindowURL returns the URL shown in window i.
func (b *Browser) WindowURL(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.windows) {
		return ""
	}
	return b.windows[i].page.URL
}

// HasBrowser reports whether window i has browser control.
func (b *Browser) HasBrowser(i int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return i >= 0 && i < len(b.windows) && !b.windows[i].utility
}

// Bound returns the window index a session prefix is bound to.
func (b *Browser) Bound(prefix string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.bindings[prefix]
	return i, ok
}

// SetStatus sets the window.status of window i.
func (b *Browser) SetStatus(i int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windows[i].status = status
}

// Scripts returns every script evaluated so far.
func (b *Browser) Scripts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.scripts...)
}

// CountScripts returns how many evaluated scripts contain substr.
func (b *Browser) CountScripts(substr string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.scripts {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

// RaisePopup simulates the page in window i calling alert or confirm with
// text. It reports whether an installed responder answered it and, if so,
// the answer.
func (b *Browser) RaisePopup(i int, kind, text string) (answered, answer bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.windows[i]
	if !w.hooks[kind] {
		return false, false
	}
	if w.want != "" && w.want != text {
		delete(w.hooks, kind)
		return false, false
	}
	b.popups[w.owner] = text
	return true, w.answer
}

// Eval implements the evaluator interface.
func (b *Browser) Eval(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", jssh.ErrConnectionClosed
	}
	b.scripts = append(b.scripts, src)
	return b.respond(strings.TrimSpace(src))
}

// Close implements the evaluator interface.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Reopen makes a closed browser accept scripts again.
func (b *Browser) Reopen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = false
}

// Handle answers one script the way the JSSh shell would print it. Use it
// as a Host handler.
func (b *Browser) Handle(src string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts = append(b.scripts, src)
	out, err := b.respond(strings.TrimSpace(src))
	if err != nil {
		return err.Error()
	}
	return out
}

var (
	jsString = `("(?:[^"\\]|\\.)*")`

	declareRe    = regexp.MustCompile(`var (\w+)_win = getWindows\(\)\[(\d+)\];`)
	hasBrowserRe = regexp.MustCompile(`^typeof getWindows\(\)\[(\d+)\]\.getBrowser == 'function'`)
	closeRe      = regexp.MustCompile(`^getWindows\(\)\[(\d+)\]\.close\(\)$`)
	windowURLRe  = regexp.MustCompile(`^getWindows\(\)\[(\d+)\]\.getBrowser\(\)\.contentDocument\.URL$`)
	rebindRe     = regexp.MustCompile(`^(\w+)_browser = (\w+)_win\.getBrowser\(\)$`)
	loadingRe    = regexp.MustCompile(`^(\w+)_browser = \w+_win\.getBrowser\(\); \w+_browser\.webProgress\.isLoadingDocument$`)
	prefixRe     = regexp.MustCompile(`\b(\w+)_(?:browser|doc|body|win|popup)\b`)
	loadURIRe    = regexp.MustCompile(`^(\w+)_browser\.loadURI\(` + jsString + `\)$`)
	litPredRe    = regexp.MustCompile(`\(\(attribute == ` + jsString + `\)\)`)
	rePredRe     = regexp.MustCompile(`new RegExp\(` + jsString + `, ` + jsString + `\)\.test\(attribute\)`)
	evaluateRe   = regexp.MustCompile(`\.evaluate\(` + jsString + `,`)
	tagRe        = regexp.MustCompile(`getElementsByTagName\(` + jsString + `\)`)
	indexRe      = regexp.MustCompile(`getElementsByTagName\(` + jsString + `\)\[(\d+)\] \|\| null`)
	attrExprRe   = regexp.MustCompile(`var attribute = String\(n\.(?:getAttribute\("(\w+)"\)|(\w+))`)
	wantRe       = regexp.MustCompile(`var want = ` + jsString + `;`)
	answerRe     = regexp.MustCompile(`var answer = (true|false);`)
	stringifyRe  = regexp.MustCompile(`(?s)^JSON\.stringify\(String\((.*)\)\)$`)
)

func scriptErr(name, format string, args ...any) error {
	return &jssh.ScriptError{Name: name, Message: fmt.Sprintf(format, args...)}
}

func unquote(lit string) string {
	var s string
	if err := json.Unmarshal([]byte(lit), &s); err != nil {
		return lit
	}
	return s
}

// prefixOf returns the session prefix used in src.
func prefixOf(src string) string {
	if m := prefixRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	return ""
}

// bound returns the live window a session prefix is bound to.
func (b *Browser) bound(prefix string) (*fakeWindow, error) {
	i, ok := b.bindings[prefix]
	if !ok {
		return nil, scriptErr("ReferenceError", "%s_browser is not defined", prefix)
	}
	if i < 0 || i >= len(b.windows) {
		return nil, scriptErr("TypeError", "can't access dead object")
	}
	return b.windows[i], nil
}

func (b *Browser) load(w *fakeWindow, url string, push bool) {
	page, ok := b.site[url]
	if !ok {
		page = Page{URL: url}
	}
	w.page = page
	w.loading = page.LoadPolls
	w.pending = ""
	w.hooks = nil
	if push {
		if len(w.history) > 0 {
			w.history = w.history[:w.pos+1]
		}
		w.history = append(w.history, url)
		w.pos = len(w.history) - 1
	}
}

// stringify encodes s the way JSON.stringify does.
func stringify(s string) string {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func (b *Browser) respond(src string) (string, error) {
	if m := stringifyRe.FindStringSubmatch(src); m != nil {
		out, err := b.respond(strings.TrimSpace(m[1]))
		if err != nil {
			return "", err
		}
		return stringify(out), nil
	}

	switch {
	case strings.Contains(src, `== 'undefined' ? "" :`):
		p := prefixOf(src)
		t := b.popups[p]
		b.popups[p] = ""
		return t, nil

	case strings.Contains(src, "var want = "):
		w, err := b.bound(prefixOf(src))
		if err != nil {
			return "", err
		}
		w.hooks = map[string]bool{"confirm": true}
		if strings.Contains(src, `hook("alert")`) {
			w.hooks["alert"] = true
		}
		if m := wantRe.FindStringSubmatch(src); m != nil {
			w.want = unquote(m[1])
		}
		w.answer = answerRe.FindStringSubmatch(src)[1] == "true"
		w.owner = prefixOf(src)
		return "true", nil

	case strings.Contains(src, "removeProgressListener"):
		return "true", nil

	case declareRe.MatchString(src):
		m := declareRe.FindStringSubmatch(src)
		i, _ := strconv.Atoi(m[2])
		if i >= len(b.windows) {
			return "", scriptErr("TypeError", "getWindows()[%d] is undefined", i)
		}
		if b.windows[i].utility {
			return "", scriptErr("TypeError", "getWindows()[%d].getBrowser is not a function", i)
		}
		b.bindings[m[1]] = i
		return "true", nil

	case strings.Contains(src, "out.push({index: i"):
		type entry struct {
			Index int    `json:"index"`
			URL   string `json:"url"`
			Title string `json:"title"`
		}
		out := []entry{}
		for i, w := range b.windows {
			if !w.utility {
				out = append(out, entry{i, w.page.URL, w.page.Title})
			}
		}
		data, _ := json.Marshal(out)
		return string(data), nil

	case strings.Contains(src, "var attribute = b.contentDocument."):
		return b.findWindow(src)

	case strings.Contains(src, ".open(); getWindows().length - 1"):
		if len(b.windows) == 0 {
			return "", scriptErr("TypeError", "getWindows()[0] is undefined")
		}
		if b.FailOpen {
			return "-1", nil
		}
		w := &fakeWindow{}
		b.windows = append(b.windows, w)
		b.load(w, "about:blank", true)
		return strconv.Itoa(len(b.windows) - 1), nil

	case hasBrowserRe.MatchString(src):
		i, _ := strconv.Atoi(hasBrowserRe.FindStringSubmatch(src)[1])
		if i >= len(b.windows) {
			return "", scriptErr("TypeError", "getWindows()[%d] is undefined", i)
		}
		return strconv.FormatBool(!b.windows[i].utility), nil

	case loadingRe.MatchString(src):
		w, err := b.bound(loadingRe.FindStringSubmatch(src)[1])
		if err != nil {
			return "", err
		}
		if w.pending != "" {
			b.load(w, w.pending, true)
		}
		if w.loading > 0 {
			w.loading--
			return "true", nil
		}
		return "false", nil

	case strings.Contains(src, "getElementsByTagName('meta')"):
		w, err := b.bound(prefixOf(src))
		if err != nil {
			return "", err
		}
		r := w.page.Refresh
		if r == nil || r.Target == "" || strings.HasSuffix(w.page.URL, r.Target) {
			return "-1", nil
		}
		if !r.Stuck {
			w.pending = r.Target
		}
		return strconv.Itoa(r.Delay), nil

	case strings.Contains(src, "r.snapshotLength"):
		return b.xpathAll(src)

	case strings.Contains(src, ".singleNodeValue"):
		return b.xpathFirst(src)

	case indexRe.MatchString(src):
		return b.nodeByIndex(src)

	case strings.Contains(src, "var attribute = "):
		return b.nodeByAttribute(src)

	case strings.Contains(src, "getElementsByTagName('html')[0].innerHTML"):
		w, err := b.bound(prefixOf(src))
		if err != nil {
			return "", err
		}
		return w.page.HTML, nil

	case loadURIRe.MatchString(src):
		m := loadURIRe.FindStringSubmatch(src)
		w, err := b.bound(m[1])
		if err != nil {
			return "", err
		}
		b.load(w, unquote(m[2]), true)
		return "", nil

	case strings.Contains(src, ".goBack()"), strings.Contains(src, ".goForward()"):
		w, err := b.bound(prefixOf(src))
		if err != nil {
			return "", err
		}
		pos := w.pos + 1
		if strings.Contains(src, ".goBack()") {
			pos = w.pos - 1
		}
		if pos >= 0 && pos < len(w.history) {
			w.pos = pos
			b.load(w, w.history[pos], false)
		}
		return "true", nil

	case strings.HasSuffix(src, "_browser.reload()"):
		w, err := b.bound(prefixOf(src))
		if err != nil {
			return "", err
		}
		b.load(w, w.page.URL, false)
		return "", nil

	case src == "getWindows().length":
		return strconv.Itoa(len(b.windows)), nil

	case closeRe.MatchString(src):
		i, _ := strconv.Atoi(closeRe.FindStringSubmatch(src)[1])
		if i >= len(b.windows) {
			return "", scriptErr("TypeError", "getWindows()[%d] is undefined", i)
		}
		if b.IgnoreClose {
			return "", nil
		}
		b.removeWindow(i)
		if len(b.windows) == 0 && b.QuitOnLastClose {
			b.closed = true
		}
		return "", nil

	case windowURLRe.MatchString(src):
		i, _ := strconv.Atoi(windowURLRe.FindStringSubmatch(src)[1])
		if i >= len(b.windows) {
			return "", scriptErr("TypeError", "getWindows()[%d] is undefined", i)
		}
		if b.windows[i].utility {
			return "", scriptErr("TypeError", "getWindows()[%d].getBrowser is not a function", i)
		}
		return b.windows[i].page.URL, nil

	case rebindRe.MatchString(src):
		_, err := b.bound(rebindRe.FindStringSubmatch(src)[1])
		return "", err
	}

	if p := prefixOf(src); p != "" {
		if out, ok, err := b.readVariable(p, src); ok {
			return out, err
		}
	}

	if b.Fallback != nil {
		return b.Fallback(src)
	}
	return "", scriptErr("ReferenceError", "unsupported script: %.60s", src)
}

// readVariable answers plain property reads of the session variables.
func (b *Browser) readVariable(prefix, src string) (string, bool, error) {
	expr := strings.TrimPrefix(src, prefix)
	switch expr {
	case "_doc.title", "_doc.URL", "_browser.contentDocument.URL", "_body.textContent",
		"_win.status", "_win.XULBrowserWindow.statusText", "_win.maximize()", "_win.minimize()":
	default:
		return "", false, nil
	}
	w, err := b.bound(prefix)
	if err != nil {
		return "", true, err
	}
	switch expr {
	case "_doc.title":
		return w.page.Title, true, nil
	case "_doc.URL", "_browser.contentDocument.URL":
		return w.page.URL, true, nil
	case "_body.textContent":
		return w.page.Text, true, nil
	case "_win.status":
		return w.status, true, nil
	case "_win.XULBrowserWindow.statusText":
		return w.page.Status, true, nil
	}
	return "", true, nil
}

func (b *Browser) removeWindow(i int) {
	b.windows = append(b.windows[:i], b.windows[i+1:]...)
	for p, idx := range b.bindings {
		switch {
		case idx == i:
			b.bindings[p] = -1
		case idx > i:
			b.bindings[p] = idx - 1
		}
	}
}

// predicate parses the literal or RegExp test applied to "attribute".
func predicate(src string) (func(string) bool, error) {
	if m := litPredRe.FindStringSubmatch(src); m != nil {
		want := unquote(m[1])
		return func(s string) bool { return s == want }, nil
	}
	if m := rePredRe.FindStringSubmatch(src); m != nil {
		opts := regexp2.RegexOptions(regexp2.ECMAScript)
		if strings.Contains(unquote(m[2]), "i") {
			opts |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(unquote(m[1]), opts)
		if err != nil {
			return nil, scriptErr("SyntaxError", "invalid regular expression")
		}
		return func(s string) bool {
			ok, err := re.MatchString(s)
			return err == nil && ok
		}, nil
	}
	return nil, scriptErr("SyntaxError", "unrecognised predicate")
}

func (b *Browser) findWindow(src string) (string, error) {
	match, err := predicate(src)
	if err != nil {
		return "", err
	}
	byTitle := strings.Contains(src, "var attribute = b.contentDocument.title")
	for i := len(b.windows) - 1; i >= 0; i-- {
		w := b.windows[i]
		if w.utility {
			continue
		}
		attr := w.page.URL
		if byTitle {
			attr = w.page.Title
		}
		if match(attr) {
			return strconv.Itoa(i), nil
		}
	}
	return "-1", nil
}

func describe(n Node) []string {
	return []string{"[object " + n.Interface + "]", n.Type}
}

func (b *Browser) xpathNodes(src string) ([]Node, error) {
	w, err := b.bound(prefixOf(src))
	if err != nil {
		return nil, err
	}
	m := evaluateRe.FindStringSubmatch(src)
	if m == nil {
		return nil, scriptErr("SyntaxError", "missing xpath")
	}
	var nodes []Node
	for _, i := range w.page.XPaths[unquote(m[1])] {
		nodes = append(nodes, w.page.Elements[i])
	}
	return nodes, nil
}

func (b *Browser) xpathFirst(src string) (string, error) {
	nodes, err := b.xpathNodes(src)
	if err != nil || len(nodes) == 0 {
		return "", err
	}
	data, _ := json.Marshal(describe(nodes[0]))
	return string(data), nil
}

func (b *Browser) xpathAll(src string) (string, error) {
	nodes, err := b.xpathNodes(src)
	if err != nil {
		return "", err
	}
	out := [][]string{}
	for _, n := range nodes {
		out = append(out, describe(n))
	}
	data, _ := json.Marshal(out)
	return string(data), nil
}

func (b *Browser) nodesByTag(src string) ([]Node, error) {
	w, err := b.bound(prefixOf(src))
	if err != nil {
		return nil, err
	}
	tag := unquote(tagRe.FindStringSubmatch(src)[1])
	var nodes []Node
	for _, n := range w.page.Elements {
		if tag == "*" || strings.EqualFold(n.Tag, tag) {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (b *Browser) nodeByIndex(src string) (string, error) {
	nodes, err := b.nodesByTag(src)
	if err != nil {
		return "", err
	}
	i, _ := strconv.Atoi(indexRe.FindStringSubmatch(src)[2])
	if i >= len(nodes) {
		return "", nil
	}
	data, _ := json.Marshal(describe(nodes[i]))
	return string(data), nil
}

func (b *Browser) nodeByAttribute(src string) (string, error) {
	nodes, err := b.nodesByTag(src)
	if err != nil {
		return "", err
	}
	match, err := predicate(src)
	if err != nil {
		return "", err
	}
	m := attrExprRe.FindStringSubmatch(src)
	if m == nil {
		return "", scriptErr("SyntaxError", "unrecognised attribute")
	}
	key := m[1] + m[2]
	switch key {
	case "textContent":
		key = "text"
	case "className":
		key = "class"
	}
	for _, n := range nodes {
		attr := n.Attrs[key]
		if key == "text" {
			attr = strings.TrimSpace(n.Text)
		}
		if match(attr) {
			data, _ := json.Marshal(describe(n))
			return string(data), nil
		}
	}
	return "", nil
}
