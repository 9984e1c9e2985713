package firefox

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomyan/foxcap/internal/script"
)

// attributeExprs reads the attribute a "how" compares, from node n.
var attributeExprs = map[string]string{
	"id":    `String(n.id || "")`,
	"name":  `String(n.getAttribute("name") || "")`,
	"value": `String(n.value || "")`,
	"text":  `String(n.textContent || "").replace(/^\s+|\s+$/g, "")`,
	"class": `String(n.className || "")`,
	"title": `String(n.title || "")`,
	"href":  `String(n.href || "")`,
	"src":   `String(n.src || "")`,
}

const matchNodeTemplate = `var %[1]s = null;
(function() {
  var nodes = $doc.getElementsByTagName(%[2]s);
  for (var i = 0; i < nodes.length; i++) {
    var n = nodes[i];
    var attribute = %[3]s;
    if (%[4]s) { %[1]s = n; return; }
  }
})();
%[1]s ? %[5]s : ""`

const indexNodeTemplate = `var %[1]s = $doc.getElementsByTagName(%[2]s)[%[3]d] || null;
%[1]s ? %[4]s : ""`

// Element resolves a locator. XPath locators resolve the first matching
// node; tag locators resolve the first element with the tag whose
// attribute matches. How "index" selects the n-th element, counting
// from 1.
func (s *Session) Element(ctx context.Context, loc Locator) (*Element, error) {
	if loc.XPath != "" {
		return s.ElementByXPath(ctx, loc.XPath)
	}

	tag := loc.Tag
	if tag == "" {
		tag = "*"
	}

	if loc.How == "index" {
		n, err := strconv.Atoi(loc.What.Source())
		if err != nil || n < 1 || loc.What.IsPattern() {
			return nil, fmt.Errorf("index must be a positive integer, got %s", loc.What)
		}
		name := s.newElementName()
		src := fmt.Sprintf(s.names.expand(indexNodeTemplate), name, script.String(tag), n-1, describe(name))
		return s.resolveOne(ctx, loc, name, src)
	}

	expr, ok := attributeExprs[loc.How]
	if !ok {
		return nil, &UnsupportedLocatorError{How: loc.How}
	}
	name := s.newElementName()
	src := fmt.Sprintf(s.names.expand(matchNodeTemplate),
		name, script.String(tag), expr, loc.What.JS("attribute"), describe(name))
	return s.resolveOne(ctx, loc, name, src)
}
