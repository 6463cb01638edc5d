package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tchatsouvenir/bookshop/internal/model"
)

// Format describes a sellable book format. Amounts are whole XOF.
type Format struct {
	Code     model.BookFormat `yaml:"code" json:"code"`
	Label    string           `yaml:"label" json:"label"`
	MaxPages int              `yaml:"max_pages" json:"max_pages"`
	Price    int64            `yaml:"price" json:"price"`
	Cost     int64            `yaml:"cost" json:"cost"`
}

type Catalog struct {
	Currency string   `yaml:"currency" json:"currency"`
	Formats  []Format `yaml:"formats" json:"formats"`
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		Currency: "XOF",
		Formats: []Format{
			{Code: model.FormatStandard, Label: "Offre Classique", MaxPages: 150, Price: 25000, Cost: 8000},
			{Code: model.FormatMedium, Label: "Offre Médium", MaxPages: 200, Price: 30000, Cost: 10000},
			{Code: model.FormatPremium, Label: "Offre Premium", MaxPages: 250, Price: 35000, Cost: 15000},
		},
	}
}

// LoadCatalog reads a YAML catalog. An empty path yields the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if c.Currency == "" {
		c.Currency = "XOF"
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Formats) == 0 {
		return fmt.Errorf("no formats defined")
	}
	seen := make(map[model.BookFormat]bool)
	for i := range c.Formats {
		code, ok := model.ParseBookFormat(string(c.Formats[i].Code))
		if !ok {
			return fmt.Errorf("unknown format %q", c.Formats[i].Code)
		}
		c.Formats[i].Code = code
		f := c.Formats[i]
		if seen[f.Code] {
			return fmt.Errorf("format %s defined twice", f.Code)
		}
		seen[f.Code] = true
		if f.Price <= 0 || f.Cost < 0 {
			return fmt.Errorf("format %s: price must be positive and cost non-negative", f.Code)
		}
	}
	return nil
}

func (c *Catalog) Lookup(code model.BookFormat) (Format, bool) {
	for _, f := range c.Formats {
		if f.Code == code {
			return f, true
		}
	}
	return Format{}, false
}

func (c *Catalog) PriceFor(code model.BookFormat) (decimal.Decimal, bool) {
	f, ok := c.Lookup(code)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(f.Price), true
}

func (c *Catalog) CostFor(code model.BookFormat) (decimal.Decimal, bool) {
	f, ok := c.Lookup(code)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(f.Cost), true
}
