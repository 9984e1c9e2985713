package firefox

import (
	"context"
	"fmt"

	"github.com/tomyan/foxcap/internal/script"
)

// PopupButton is the answer the popup responder gives.
type PopupButton int

const (
	PopupOK PopupButton = iota
	PopupCancel
)

// ParsePopupButton converts "ok" or "cancel".
func ParsePopupButton(s string) (PopupButton, error) {
	switch s {
	case "ok", "OK":
		return PopupOK, nil
	case "cancel", "Cancel":
		return PopupCancel, nil
	}
	return 0, fmt.Errorf("unknown popup button %q", s)
}

func (b PopupButton) String() string {
	if b == PopupCancel {
		return "cancel"
	}
	return "ok"
}

// popupTemplate replaces alert/confirm on the content window. A popup
// whose text is not the wanted text restores the original function and
// shows normally.
const popupTemplate = `var $popup = "";
(function() {
  var w = $browser.contentWindow;
  var want = %[1]s;
  var answer = %[2]s;
  var hook = function(name) {
    var orig = w[name];
    w[name] = function(msg) {
      if (want != "" && String(msg) != want) {
        w[name] = orig;
        return orig.call(w, msg);
      }
      $popup = String(msg);
      return answer;
    };
  };
  %[3]s
})();
true`

const popupTextTemplate = `(function() {
  var t = typeof $popup == 'undefined' ? "" : $popup;
  $popup = "";
  return t;
})()`

func popupScript(n Names, button PopupButton, text string) string {
	hooks := `hook("alert"); hook("confirm");`
	if button == PopupCancel {
		hooks = `hook("confirm");`
	}
	return fmt.Sprintf(n.expand(popupTemplate),
		script.String(text), script.Bool(button == PopupOK), hooks)
}

// InstallPopupResponder answers the next alert or confirm dialogs in the
// active window with button. If text is non-empty only popups showing
// exactly that text are answered. Cancel only applies to confirm dialogs.
func (s *Session) InstallPopupResponder(ctx context.Context, button PopupButton, text string) error {
	if _, err := s.ev.Eval(ctx, popupScript(s.names, button, text)); err != nil {
		return fmt.Errorf("installing popup responder: %w", err)
	}
	return nil
}

// PopupText returns the text of the last answered popup and clears it.
func (s *Session) PopupText(ctx context.Context) (string, error) {
	text, err := s.evalString(ctx, s.names.expand(popupTextTemplate))
	if err != nil {
		return "", fmt.Errorf("reading popup text: %w", err)
	}
	return text, nil
}
