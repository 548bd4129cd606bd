package source

import (
	"context"

	"github.com/sboehler/folio/lib/allocation"
)

// CatalogProvider returns the classification catalog and the target
// allocation.
type CatalogProvider interface {
	Catalog(ctx context.Context) (*allocation.Catalog, *allocation.Targets, error)
}

// YAMLCatalog reads a YAML catalog file.
type YAMLCatalog struct {
	Path string
}

var _ CatalogProvider = (*YAMLCatalog)(nil)

// Catalog implements CatalogProvider.
func (p *YAMLCatalog) Catalog(ctx context.Context) (*allocation.Catalog, *allocation.Targets, error) {
	return allocation.LoadCatalogFile(p.Path)
}

// Column names of the settings sheet.
const (
	SettingsCode        = "종목코드"
	SettingsName        = "종목명"
	SettingsClass       = "구분"
	SettingsNationality = "국적구분"
	SettingsTarget      = "목표비중"
)

// SettingsCatalog reads a settings sheet export, where every row carries a
// classified code and optionally the target weight of its class.
type SettingsCatalog struct {
	Path     string
	Encoding string
}

var _ CatalogProvider = (*SettingsCatalog)(nil)

// Catalog implements CatalogProvider. Rows lacking a code, class or
// nationality are skipped, as are unparsable target weights.
func (p *SettingsCatalog) Catalog(ctx context.Context) (*allocation.Catalog, *allocation.Targets, error) {
	rows, col, err := readTable(ctx, p.Path, p.Encoding,
		SettingsCode, SettingsName, SettingsClass, SettingsNationality, SettingsTarget)
	if err != nil {
		return nil, nil, err
	}
	var (
		catalog = allocation.NewCatalog()
		targets = allocation.NewTargets()
	)
	for _, rec := range rows {
		var (
			code  = field(rec, col[SettingsCode])
			class = allocation.Class{
				AssetClass:  field(rec, col[SettingsClass]),
				Nationality: field(rec, col[SettingsNationality]),
			}
		)
		if code == "" || class.AssetClass == "" || class.Nationality == "" {
			continue
		}
		catalog.Add(allocation.Entry{
			Code:  code,
			Name:  field(rec, col[SettingsName]),
			Class: class,
		})
		if t := field(rec, col[SettingsTarget]); t != "" {
			if pct, err := allocation.ParsePercent(t); err == nil {
				targets.Add(class, pct)
			}
		}
	}
	return catalog, targets, nil
}
