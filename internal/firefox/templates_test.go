package firefox

import (
	"fmt"
	"testing"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/foxcap/internal/script"
)

// The templates below run in the host. These tests execute them in goja
// against stub host objects.

var testNames = newNames(uuid.MustParse("0badf00d-0000-4000-8000-000000000000"))

func newVM(t *testing.T, setup string) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(testNames.expand(setup))
	require.NoError(t, err, "setup")
	return vm
}

func runJS(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(testNames.expand(src))
	require.NoError(t, err, "script: %s", src)
	return v
}

func TestRefreshTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		url   string
		metas string
		want  int64
	}{
		{"no meta", pageA, `[]`, -1},
		{"absolute target", pageA, `[{"httpEquiv": "refresh", "content": "0; url=http://example.test/b"}]`, 0},
		{"relative target", pageA, `[{"httpEquiv": "Refresh", "content": "5;URL=/b"}]`, 5},
		{"mixed case url with spaces", pageA, `[{"httpEquiv": "REFRESH", "content": "2; Url = /c"}]`, 2},
		{"target is current document", pageB, `[{"httpEquiv": "refresh", "content": "0; url=/b"}]`, -1},
		{"single quoted current document", pageC, `[{"httpEquiv": "refresh", "content": "3; url='http://example.test/c'"}]`, -1},
		{"double quoted target", pageA, `[{"httpEquiv": "refresh", "content": "3; url=\"/c\""}]`, 3},
		{"no separator", pageA, `[{"httpEquiv": "refresh", "content": "5"}]`, -1},
		{"empty target", pageA, `[{"httpEquiv": "refresh", "content": "0; url="}]`, -1},
		{"unparseable delay", pageA, `[{"httpEquiv": "refresh", "content": "soon; url=/b"}]`, 0},
		{"other http-equiv", pageA, `[{"httpEquiv": "content-type", "content": "text/html; charset=utf-8"}]`, -1},
		{"target with semicolon", pageA, `[{"httpEquiv": "refresh", "content": "1; url=/b?x=1;y=2"}]`, 1},
		{"first usable meta wins", pageB, `[
			{"httpEquiv": "refresh", "content": "0; url=/b"},
			{"httpEquiv": "refresh", "content": "7; url=/c"},
			{"httpEquiv": "refresh", "content": "9; url=/a"}]`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			vm := newVM(t, fmt.Sprintf(`var metas = %s;
var $browser = {contentDocument: {
  URL: %s,
  getElementsByTagName: function(tag) { return tag == 'meta' ? metas : []; }
}};`, tt.metas, script.String(tt.url)))

			got := runJS(t, vm, refreshTemplate)
			assert.Equal(t, tt.want, got.ToInteger())
		})
	}
}

const listenerHost = `var Components = {
  interfaces: {
    nsIWebProgressListener: {STATE_STOP: 0x10, STATE_IS_NETWORK: 0x40000},
    nsISupportsWeakReference: {},
    nsISupports: {},
    nsIWebProgress: {NOTIFY_STATE_WINDOW: 8}
  },
  results: {NS_NOINTERFACE: "NS_NOINTERFACE"}
};
var added = [];
var removed = [];
var tab = {
  contentDocument: {URL: "a", body: {id: "a"}},
  addProgressListener: function(l, mask) { added.push(mask); },
  removeProgressListener: function(l) { removed.push(l); }
};
function getWindows() { return [{}, {getBrowser: function() { return tab; }}]; }
function iid(x) { return {equals: function(o) { return o === x; }}; }`

func TestListenerTemplate_RebindsOnNetworkStop(t *testing.T) {
	t.Parallel()

	vm := newVM(t, listenerHost)
	assert.True(t, runJS(t, vm, listenerTemplate).ToBoolean())
	assert.True(t, runJS(t, vm, fmt.Sprintf(declareTemplate, 1)).ToBoolean())

	assert.Equal(t, "a/a", runJS(t, vm, `$doc.URL + "/" + $body.id`).String())
	assert.Equal(t, "1:8", runJS(t, vm, `added.length + ":" + added[0]`).String())

	got := runJS(t, vm, `tab.contentDocument = {URL: "b", body: {id: "b"}};
$listener.onStateChange(null, null, 0x10 | 0x40000, 0);
$doc.URL + "/" + $body.id`)
	assert.Equal(t, "b/b", got.String())

	// A document-level stop leaves the binding alone.
	got = runJS(t, vm, `tab.contentDocument = {URL: "c", body: {id: "c"}};
$listener.onStateChange(null, null, 0x10, 0);
$doc.URL`)
	assert.Equal(t, "b", got.String())
}

func TestListenerTemplate_QueryInterface(t *testing.T) {
	t.Parallel()

	vm := newVM(t, listenerHost)
	runJS(t, vm, listenerTemplate)

	assert.True(t, runJS(t, vm, `$listener.QueryInterface(iid(Components.interfaces.nsIWebProgressListener)) === $listener`).ToBoolean())
	assert.True(t, runJS(t, vm, `$listener.QueryInterface(iid(Components.interfaces.nsISupports)) === $listener`).ToBoolean())

	got := runJS(t, vm, `(function() {
  try { $listener.QueryInterface(iid({})); return "accepted"; } catch (e) { return String(e); }
})()`)
	assert.Equal(t, "NS_NOINTERFACE", got.String())
}

func TestListenerTemplate_ReplacesPreviousListener(t *testing.T) {
	t.Parallel()

	vm := newVM(t, listenerHost)
	runJS(t, vm, listenerTemplate)
	runJS(t, vm, fmt.Sprintf(declareTemplate, 1))
	runJS(t, vm, `var previous = $listener;`)

	runJS(t, vm, listenerTemplate)

	assert.True(t, runJS(t, vm, `removed.length == 1 && removed[0] === previous && $listener !== previous`).ToBoolean())
}

const popupHost = `var shown = [];
var $browser = {contentWindow: {
  alert: function(m) { shown.push("alert:" + m); return "native"; },
  confirm: function(m) { shown.push("confirm:" + m); return "native"; }
}};`

func popupText(t *testing.T, vm *goja.Runtime) string {
	t.Helper()
	return runJS(t, vm, stringExpr(popupTextTemplate)).String()
}

func TestPopupTemplate_AnswersAnyText(t *testing.T) {
	t.Parallel()

	vm := newVM(t, popupHost)
	assert.Equal(t, `""`, popupText(t, vm))
	runJS(t, vm, popupScript(testNames, PopupOK, ""))

	assert.Equal(t, true, runJS(t, vm, `$browser.contentWindow.confirm("Sure?")`).Export())
	assert.Equal(t, `"Sure?"`, popupText(t, vm))
	assert.Equal(t, `""`, popupText(t, vm))

	assert.Equal(t, true, runJS(t, vm, `$browser.contentWindow.alert("Saved")`).Export())
	assert.Equal(t, `"Saved"`, popupText(t, vm))
	assert.Equal(t, int64(0), runJS(t, vm, `shown.length`).ToInteger())
}

func TestPopupTemplate_CancelOnlyHooksConfirm(t *testing.T) {
	t.Parallel()

	vm := newVM(t, popupHost)
	runJS(t, vm, popupScript(testNames, PopupCancel, ""))

	assert.Equal(t, false, runJS(t, vm, `$browser.contentWindow.confirm("Sure?")`).Export())
	assert.Equal(t, "native", runJS(t, vm, `$browser.contentWindow.alert("Saved")`).Export())
	assert.Equal(t, "alert:Saved", runJS(t, vm, `shown.join(",")`).String())
}

func TestPopupTemplate_MismatchRestoresOriginal(t *testing.T) {
	t.Parallel()

	vm := newVM(t, popupHost)
	runJS(t, vm, popupScript(testNames, PopupOK, `Delete "all"?`))

	assert.Equal(t, true, runJS(t, vm, `$browser.contentWindow.confirm('Delete "all"?')`).Export())
	assert.Equal(t, "native", runJS(t, vm, `$browser.contentWindow.confirm("Other")`).Export())
	assert.Equal(t, "native", runJS(t, vm, `$browser.contentWindow.confirm('Delete "all"?')`).Export())
	assert.Equal(t, `confirm:Other,confirm:Delete "all"?`, runJS(t, vm, `shown.join(",")`).String())
	assert.Equal(t, `"Delete \"all\"?"`, popupText(t, vm))
}

func TestStringExpr_EncodesErrorShapedValues(t *testing.T) {
	t.Parallel()

	vm := newVM(t, `var $doc = {title: "TypeError: x is undefined", URL: null};`)

	assert.Equal(t, `"TypeError: x is undefined"`, runJS(t, vm, stringExpr("$doc.title")).String())
	assert.Equal(t, `"null"`, runJS(t, vm, stringExpr("$doc.URL")).String())
}
