// Package dataset holds the demo financial data the dashboard starts with.
package dataset

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/finnexus/internal/domain/entity"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Invoices []entity.Invoice         `yaml:"invoices"`
	Charts   []entity.ChartDataPoint  `yaml:"charts"`
	Metrics  []entity.FinancialMetric `yaml:"metrics"`
}

// Dataset is the static part of the dashboard plus the initial invoices
type Dataset struct {
	invoices []entity.Invoice
	charts   []entity.ChartDataPoint
	metrics  []entity.FinancialMetric
}

// Default returns the embedded demo dataset
func Default() *Dataset {
	ds, err := parse(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("embedded seed is invalid: %v", err))
	}
	return ds
}

// Load reads a dataset from a YAML file. An empty path yields Default.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Dataset, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	seen := make(map[string]bool, len(seed.Invoices))
	for i, inv := range seed.Invoices {
		if inv.ID == "" {
			return nil, fmt.Errorf("invoice %d has no id", i)
		}
		if seen[inv.ID] {
			return nil, fmt.Errorf("duplicate invoice id %s", inv.ID)
		}
		seen[inv.ID] = true
	}

	return &Dataset{
		invoices: seed.Invoices,
		charts:   seed.Charts,
		metrics:  seed.Metrics,
	}, nil
}

// Invoices returns the seed invoices, newest first
func (ds *Dataset) Invoices() []entity.Invoice {
	return append([]entity.Invoice(nil), ds.invoices...)
}

// Metrics returns the headline metrics
func (ds *Dataset) Metrics() []entity.FinancialMetric {
	return append([]entity.FinancialMetric(nil), ds.metrics...)
}

// Charts returns the monthly cash-flow series
func (ds *Dataset) Charts() []entity.ChartDataPoint {
	return append([]entity.ChartDataPoint(nil), ds.charts...)
}
