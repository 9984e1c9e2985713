package firefox

import (
	"context"
	"fmt"
)

// listenerTemplate removes any listener this session installed before and
// creates a new one. On a network stop it rebinds the document and body,
// since a navigation can swap the content document without the session
// otherwise noticing.
const listenerTemplate = `if (typeof $listener != 'undefined' && $listener && typeof $browser != 'undefined' && $browser) {
  try { $browser.removeProgressListener($listener); } catch (e) {}
}
var $listener = {
  wpl: Components.interfaces.nsIWebProgressListener,
  QueryInterface: function(aIID) {
    if (aIID.equals(Components.interfaces.nsIWebProgressListener) ||
        aIID.equals(Components.interfaces.nsISupportsWeakReference) ||
        aIID.equals(Components.interfaces.nsISupports)) {
      return this;
    }
    throw Components.results.NS_NOINTERFACE;
  },
  onStateChange: function(aProgress, aRequest, aFlag, aStatus) {
    if ((aFlag & this.wpl.STATE_STOP) && (aFlag & this.wpl.STATE_IS_NETWORK)) {
      $doc = $browser.contentDocument;
      $body = $doc.body;
    }
  },
  onLocationChange: function() {},
  onProgressChange: function() {},
  onStatusChange: function() {},
  onSecurityChange: function() {}
};
true`

const declareTemplate = `var $win = getWindows()[%d];
var $browser = $win.getBrowser();
$browser.addProgressListener($listener, Components.interfaces.nsIWebProgress.NOTIFY_STATE_WINDOW);
var $doc = $browser.contentDocument;
var $body = $doc.body;
true`

// bind points the session's remote variables at window index, installs the
// progress listener on its browser and caches the title and URL.
func (s *Session) bind(ctx context.Context, index int) error {
	if _, err := s.ev.Eval(ctx, s.names.expand(listenerTemplate)); err != nil {
		return fmt.Errorf("installing progress listener: %w", err)
	}
	if _, err := s.ev.Eval(ctx, fmt.Sprintf(s.names.expand(declareTemplate), index)); err != nil {
		return fmt.Errorf("binding window %d: %w", index, err)
	}
	s.window = index

	title, err := s.evalString(ctx, s.names.Doc+".title")
	if err != nil {
		return fmt.Errorf("reading title: %w", err)
	}
	url, err := s.evalString(ctx, s.names.Doc+".URL")
	if err != nil {
		return fmt.Errorf("reading URL: %w", err)
	}
	s.title, s.url = title, url
	return nil
}
