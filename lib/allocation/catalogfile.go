package allocation

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

type yamlCatalogFile struct {
	Classes []yamlClass  `yaml:"classes"`
	Targets []yamlTarget `yaml:"targets"`
}

type yamlClass struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Class       string `yaml:"class"`
	Nationality string `yaml:"nationality"`
}

type yamlTarget struct {
	Class       string `yaml:"class"`
	Nationality string `yaml:"nationality"`
	Percent     string `yaml:"percent"`
}

// LoadCatalogFile loads a catalog and targets from a YAML file.
func LoadCatalogFile(path string) (*Catalog, *Targets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog loads a catalog and targets from YAML:
//
//	classes:
//	  - {code: "005930", name: 삼성전자, class: 주식, nationality: 한국}
//	targets:
//	  - {class: 주식, nationality: 한국, percent: "30%"}
func LoadCatalog(r io.Reader) (*Catalog, *Targets, error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	var t yamlCatalogFile
	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return nil, nil, err
	}
	catalog := NewCatalog()
	for _, c := range t.Classes {
		if c.Code == "" || c.Class == "" || c.Nationality == "" {
			return nil, nil, fmt.Errorf("incomplete classification for code %q", c.Code)
		}
		catalog.Add(Entry{
			Code:  c.Code,
			Name:  c.Name,
			Class: Class{c.Class, c.Nationality},
		})
	}
	targets := NewTargets()
	for _, tgt := range t.Targets {
		p, err := ParsePercent(tgt.Percent)
		if err != nil {
			return nil, nil, fmt.Errorf("target (%s, %s): invalid percentage %q", tgt.Class, tgt.Nationality, tgt.Percent)
		}
		targets.Add(Class{tgt.Class, tgt.Nationality}, p)
	}
	return catalog, targets, nil
}
