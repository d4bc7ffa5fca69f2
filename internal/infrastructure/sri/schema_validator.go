package sri

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/samber/lo"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

const opValidateXML = "sri.Validate"

// Violation es un incumplimiento del esquema: ruta del elemento y regla violada.
type Violation struct {
	Path string
	Rule string
}

func (v Violation) String() string { return v.Path + ": " + v.Rule }

// SchemaValidator valida comprobantes contra las tablas de esquema de factura y
// nota de crédito. Es puro: nunca modifica el documento recibido.
type SchemaValidator struct{}

// NewSchemaValidator crea el validador.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Validate devuelve nil o un error SCHEMA_VALIDATION con todas las violaciones.
func (v *SchemaValidator) Validate(xmlBytes []byte) error {
	violations := v.Check(xmlBytes)
	if len(violations) == 0 {
		return nil
	}
	return domain.SchemaValidation(opValidateXML, lo.Map(violations, func(x Violation, _ int) string {
		return x.String()
	}))
}

// Check devuelve la lista de violaciones (vacía si el documento es conforme).
func (v *SchemaValidator) Check(xmlBytes []byte) []Violation {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return []Violation{{Path: "/", Rule: "XML mal formado: " + err.Error()}}
	}
	root := doc.Root()
	if root == nil {
		return []Violation{{Path: "/", Rule: "documento sin elemento raíz"}}
	}
	rule, ok := schemas[root.Tag]
	if !ok {
		return []Violation{{Path: "/" + root.Tag, Rule: "tipo de comprobante no soportado"}}
	}
	c := &checker{}
	c.element(root, rule, "/"+root.Tag)
	return c.violations
}

type checker struct {
	violations []Violation
}

func (c *checker) add(path, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Rule: fmt.Sprintf(format, args...)})
}

func (c *checker) element(el *etree.Element, rule *elementRule, path string) {
	c.attributes(el, rule, path)
	if rule.Any {
		return
	}
	children := el.ChildElements()
	if len(rule.Children) == 0 {
		if len(children) > 0 {
			c.add(path, "no admite elementos hijos")
		}
		if rule.Type != nil {
			c.simple(el.Text(), rule.Type, path)
		}
		return
	}
	if strings.TrimSpace(el.Text()) != "" {
		c.add(path, "no admite texto")
	}
	c.sequence(children, rule.Children, path)
}

// sequence recorre los hijos en el orden declarado: cada regla consume los hijos
// consecutivos con su nombre y verifica minOccurs/maxOccurs.
func (c *checker) sequence(children []*etree.Element, rules []elementRule, path string) {
	i := 0
	for ri := range rules {
		r := &rules[ri]
		count := 0
		for i < len(children) && children[i].Tag == r.Name {
			count++
			childPath := path + "/" + r.Name
			if r.Max != 1 {
				childPath = fmt.Sprintf("%s[%d]", childPath, count)
			}
			if r.Max != unbounded && count > r.Max {
				c.add(childPath, "aparece más de %d veces", r.Max)
			}
			c.element(children[i], r, childPath)
			i++
		}
		if count < r.Min {
			c.add(path+"/"+r.Name, "elemento obligatorio ausente o fuera de orden")
		}
	}
	for ; i < len(children); i++ {
		c.add(path+"/"+children[i].Tag, "elemento no esperado en esta posición")
	}
}

func (c *checker) attributes(el *etree.Element, rule *elementRule, path string) {
	for _, a := range rule.Attrs {
		attr := el.SelectAttr(a.Name)
		if attr == nil {
			if a.Required {
				c.add(path+"/@"+a.Name, "atributo obligatorio ausente")
			}
			continue
		}
		if a.Type != nil {
			c.simple(attr.Value, a.Type, path+"/@"+a.Name)
		}
	}
}

var decimalRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

func (c *checker) simple(value string, t *simpleType, path string) {
	switch {
	case t.Pattern != nil:
		if !t.Pattern.MatchString(value) {
			c.add(path, "valor %q no cumple el patrón (%s)", value, t.Desc)
		}
	case len(t.Enum) > 0:
		if !lo.Contains(t.Enum, value) {
			c.add(path, "valor %q no permitido (%s)", value, strings.Join(t.Enum, ", "))
		}
	case t.Decimal:
		if !decimalRe.MatchString(value) {
			c.add(path, "valor %q no es decimal", value)
			return
		}
		intPart, frac, _ := strings.Cut(strings.TrimPrefix(value, "-"), ".")
		digits := len(strings.TrimLeft(intPart, "0")) + len(frac)
		if len(frac) > t.Fractions || digits > t.Total {
			c.add(path, "valor %q excede %s", value, t.Desc)
		}
	default:
		n := utf8.RuneCountInString(value)
		if n < t.MinLen || (t.MaxLen > 0 && n > t.MaxLen) {
			c.add(path, "longitud %d fuera de rango (%s)", n, t.Desc)
		}
	}
}
