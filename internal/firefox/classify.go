package firefox

import "strings"

// inputKinds maps a normalised input type to its variant.
var inputKinds = map[string]Kind{
	"select-one":      SelectList,
	"select-multiple": SelectList,
	"text":            TextField,
	"password":        TextField,
	"textarea":        TextField,
	"file":            FileField,
	"checkbox":        CheckBox,
	"radio":           Radio,
	"reset":           Button,
	"button":          Button,
	"submit":          Button,
	"image":           Button,
}

// tagKinds maps the tag part of an HTML<tag>Element interface name.
var tagKinds = map[string]Kind{
	"Div":       Div,
	"Button":    Button,
	"Frame":     Frame,
	"Span":      Span,
	"Paragraph": Paragraph,
	"Label":     Label,
	"Form":      Form,
	"Image":     Image,
	"Table":     Table,
	"TableCell": TableCell,
	"TableRow":  TableRow,
	"Select":    SelectList,
	"Link":      Link,
	"Anchor":    Link,
}

// Classify maps a host interface name (such as "HTMLInputElement" or
// "[object HTMLInputElement]") and, for inputs, the input type to a Kind.
// It is a pure function of its arguments.
func Classify(interfaceName, inputType string) Kind {
	tag, ok := elementTag(interfaceName)
	if !ok {
		return GenericElement
	}
	if tag == "Input" {
		if k, ok := inputKinds[strings.ToLower(strings.TrimSpace(inputType))]; ok {
			return k
		}
		return GenericElement
	}
	if k, ok := tagKinds[tag]; ok {
		return k
	}
	return GenericElement
}

// elementTag extracts <tag> from "HTML<tag>Element", tolerating the
// "[object ...]" wrapping produced by Object.prototype.toString.
func elementTag(name string) (string, bool) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "[object ")
	name = strings.TrimSuffix(name, "]")
	if !strings.HasPrefix(name, "HTML") || !strings.HasSuffix(name, "Element") {
		return "", false
	}
	tag := name[len("HTML") : len(name)-len("Element")]
	if tag == "" {
		return "", false
	}
	return tag, true
}

// discriminators returns the construction arguments a variant requires.
func discriminators(k Kind) []string {
	switch k {
	case CheckBox:
		return []string{"checkbox"}
	case Radio:
		return []string{"radio"}
	}
	return nil
}

func newElement(name, interfaceName, inputType string) *Element {
	kind := Classify(interfaceName, inputType)
	el := &Element{
		Name:           name,
		Kind:           kind,
		Interface:      strings.TrimSuffix(strings.TrimPrefix(interfaceName, "[object "), "]"),
		Discriminators: discriminators(kind),
	}
	if tag, _ := elementTag(interfaceName); tag == "Input" {
		el.InputType = strings.ToLower(strings.TrimSpace(inputType))
	}
	return el
}
