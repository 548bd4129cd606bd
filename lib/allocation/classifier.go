package allocation

// Policy holds the labels used when classifying holdings.
type Policy struct {
	// AlternativeClass is the asset class whose nationality is ignored.
	AlternativeClass string
	// AlternativeNationality replaces the nationality of alternative assets.
	AlternativeNationality string
	// AlternativeLabel labels the alternative bucket.
	AlternativeLabel string
	// Unclassified is used as asset class, nationality and label of codes
	// which are not in the catalog.
	Unclassified string
	// GoldCode identifies physical gold, which is an alternative asset
	// unless the catalog says otherwise.
	GoldCode string
}

// DefaultPolicy returns the labels of a Korean brokerage setup.
func DefaultPolicy() Policy {
	return Policy{
		AlternativeClass:       "대체투자",
		AlternativeNationality: "기타",
		AlternativeLabel:       "대체투자 (금현물)",
		Unclassified:           "미분류",
		GoldCode:               "GOLD",
	}
}

// Classifier assigns holdings to classes.
type Classifier struct {
	Catalog *Catalog
	Policy  Policy
}

// Classify returns the class of a security code and whether it was found.
// Unknown codes are unclassified.
func (c Classifier) Classify(code string) (Class, bool) {
	if c.Catalog != nil {
		if e, ok := c.Catalog.Lookup(code); ok {
			return e.Class, true
		}
	}
	if NormalizeCode(code) == c.Policy.GoldCode {
		return Class{c.Policy.AlternativeClass, c.Policy.AlternativeNationality}, true
	}
	return c.unclassified(), false
}

// Key returns the bucket key of a class. Alternative assets share one
// bucket regardless of nationality.
func (c Classifier) Key(cls Class) Class {
	if cls.AssetClass == c.Policy.AlternativeClass {
		return Class{cls.AssetClass, c.Policy.AlternativeNationality}
	}
	return cls
}

// Label returns the display label of a bucket key, e.g. "미국 주식".
func (c Classifier) Label(key Class) string {
	switch key {
	case c.unclassified():
		return c.Policy.Unclassified
	case c.Key(Class{AssetClass: c.Policy.AlternativeClass}):
		return c.Policy.AlternativeLabel
	}
	return key.Nationality + " " + key.AssetClass
}

func (c Classifier) unclassified() Class {
	return Class{c.Policy.Unclassified, c.Policy.Unclassified}
}
