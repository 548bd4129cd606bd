package allocation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Class is an asset class and nationality pair.
type Class struct {
	AssetClass  string
	Nationality string
}

func (c Class) String() string {
	return fmt.Sprintf("(%s, %s)", c.AssetClass, c.Nationality)
}

// Entry classifies a security code.
type Entry struct {
	Code  string
	Name  string
	Class Class
}

// Catalog maps security codes to their classification.
type Catalog struct {
	byCode map[string]Entry
}

// NewCatalog creates a catalog. Codes are normalized and a domestic
// six-digit code is registered both bare and with its "A" prefix.
func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{byCode: make(map[string]Entry)}
	for _, e := range entries {
		c.Add(e)
	}
	return c
}

// Add registers an entry, replacing earlier entries for the same code.
// Entries without a code are ignored.
func (c *Catalog) Add(e Entry) {
	code := NormalizeCode(e.Code)
	if code == "" {
		return
	}
	e.Code = code
	c.byCode[code] = e
	if isDomestic(code) {
		c.byCode["A"+code] = e
	}
}

// Lookup finds the entry for a code, trying the alternative form of
// domestic codes with and without the "A" prefix.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	code = NormalizeCode(code)
	if e, ok := c.byCode[code]; ok {
		return e, true
	}
	var alt string
	switch {
	case isDomestic(code):
		alt = "A" + code
	case strings.HasPrefix(code, "A") && isDigits(code[1:]):
		alt = code[1:]
	default:
		return Entry{}, false
	}
	e, ok := c.byCode[alt]
	return e, ok
}

// Len returns the number of registered codes.
func (c *Catalog) Len() int {
	return len(c.byCode)
}

// NormalizeCode strips exchange prefixes such as "KRX:" and surrounding
// whitespace, and upper-cases the code.
func NormalizeCode(code string) string {
	if i := strings.LastIndex(code, ":"); i >= 0 {
		code = code[i+1:]
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

func isDomestic(code string) bool {
	return len(code) == 6 && isDigits(code)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Targets holds target weights in percent per class.
type Targets struct {
	percent map[Class]decimal.Decimal
	order   []Class
}

// NewTargets creates an empty target set.
func NewTargets() *Targets {
	return &Targets{percent: make(map[Class]decimal.Decimal)}
}

// Add sets the target for a class. The first definition of a class wins;
// Add reports whether p was stored.
func (t *Targets) Add(c Class, p decimal.Decimal) bool {
	if _, ok := t.percent[c]; ok {
		return false
	}
	t.percent[c] = p
	t.order = append(t.order, c)
	return true
}

// Get returns the target for a class.
func (t *Targets) Get(c Class) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	p, ok := t.percent[c]
	return p, ok
}

// Classes returns the classes in definition order.
func (t *Targets) Classes() []Class {
	if t == nil {
		return nil
	}
	return t.order
}

// Validate fails with ErrNoTargets if no target is defined, as a
// comparison against nothing is meaningless.
func (t *Targets) Validate() error {
	if t.Len() == 0 {
		return ErrNoTargets
	}
	return nil
}

// Len returns the number of targets.
func (t *Targets) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// ParsePercent parses a target weight such as "12.5%" or "12.5".
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	return decimal.NewFromString(s)
}
