package store

import (
	"encoding/json"
	"fmt"
	"os"

	"go-leasegate/internal/models"

	"github.com/shopspring/decimal"
)

// Seed is the fixture format for the in-memory store.
type Seed struct {
	Assets []struct {
		ID          string           `json:"id"`
		AssetNumber string           `json:"asset_number"`
		AssetType   models.AssetType `json:"asset_type"`
		Name        string           `json:"asset_name"`
		Resources   []struct {
			Number    string          `json:"number"`
			UnitPrice decimal.Decimal `json:"unit_price"`
		} `json:"resources"`
	} `json:"assets"`
}

// LoadSeed fills s from a JSON fixture file.
func LoadSeed(s *MemoryStore, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for _, a := range seed.Assets {
		asset := models.Asset{ID: a.ID, AssetNumber: a.AssetNumber, AssetType: a.AssetType, Name: a.Name}
		s.PutAsset(asset)
		for _, r := range a.Resources {
			ref, err := asset.ResourceRef(r.Number)
			if err != nil {
				return err
			}
			s.PutResource(models.Resource{
				Ref:       ref,
				UnitPrice: r.UnitPrice,
				Lease:     models.Lease{Status: models.LeaseInactive},
			})
		}
	}
	return nil
}
