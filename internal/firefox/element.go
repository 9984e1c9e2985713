package firefox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tomyan/foxcap/internal/script"
)

// describeTemplate renders a node as [interface, type] JSON. %s is the node.
const describeTemplate = `JSON.stringify([Object.prototype.toString.call(%[1]s), String(%[1]s.type || "")])`

const firstNodeTemplate = `var %[1]s = $doc.evaluate(%[2]s, $doc, null, 9, null).singleNodeValue;
%[1]s ? %[3]s : ""`

const allNodesTemplate = `var %[1]s = [];
(function() {
  var r = $doc.evaluate(%[2]s, $doc, null, 7, null);
  for (var i = 0; i < r.snapshotLength; i++) %[1]s.push(r.snapshotItem(i));
})();
JSON.stringify(%[1]s.map(function(n) { return [Object.prototype.toString.call(n), String(n.type || "")]; }))`

func describe(node string) string {
	return fmt.Sprintf(describeTemplate, node)
}

// newElementName reserves a fresh remote variable for a single node.
func (s *Session) newElementName() string {
	s.nextEl++
	return s.names.element(s.nextEl)
}

func (s *Session) newElementsName() string {
	s.nextEl++
	return s.names.elements(s.nextEl)
}

// resolveOne evaluates a script that stores a node under name and returns
// its description, or "" when nothing matched.
func (s *Session) resolveOne(ctx context.Context, loc Locator, name, src string) (*Element, error) {
	out, err := s.ev.Eval(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("locating element using %s: %w", loc, err)
	}
	if out == "" {
		return nil, &UnknownElementError{Locator: loc}
	}
	var desc [2]string
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		return nil, fmt.Errorf("parsing element description %q: %w", out, err)
	}
	el := newElement(name, desc[0], desc[1])
	s.metrics.RecordElement(string(el.Kind))
	return el, nil
}

// ElementByXPath resolves the first node, in document order, matching
// xpath in the current document.
func (s *Session) ElementByXPath(ctx context.Context, xpath string) (*Element, error) {
	name := s.newElementName()
	src := fmt.Sprintf(s.names.expand(firstNodeTemplate), name, script.String(xpath), describe(name))
	return s.resolveOne(ctx, ByXPath(xpath), name, src)
}

// ElementsByXPath resolves every node matching xpath. The result reflects
// the document at call time.
func (s *Session) ElementsByXPath(ctx context.Context, xpath string) ([]*Element, error) {
	arr := s.newElementsName()
	out, err := s.ev.Eval(ctx, fmt.Sprintf(s.names.expand(allNodesTemplate), arr, script.String(xpath)))
	if err != nil {
		return nil, fmt.Errorf("locating elements using xpath %q: %w", xpath, err)
	}
	var descs [][2]string
	if err := json.Unmarshal([]byte(out), &descs); err != nil {
		return nil, fmt.Errorf("parsing element descriptions: %w", err)
	}
	elements := make([]*Element, 0, len(descs))
	for i, d := range descs {
		el := newElement(fmt.Sprintf("%s[%d]", arr, i), d[0], d[1])
		s.metrics.RecordElement(string(el.Kind))
		elements = append(elements, el)
	}
	return elements, nil
}
