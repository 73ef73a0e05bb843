package seed

import (
	"context"
	_ "embed"
	"fmt"

	"stackit/internal/models"
	"stackit/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed tags.yaml
var catalogueYAML []byte

// CatalogueTag is one entry of the official tag catalogue.
type CatalogueTag struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// Catalogue parses the embedded tag catalogue and validates every entry.
func Catalogue() ([]CatalogueTag, error) {
	return parseCatalogue(catalogueYAML)
}

func parseCatalogue(raw []byte) ([]CatalogueTag, error) {
	var doc struct {
		Tags []CatalogueTag `yaml:"tags"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse tag catalogue: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Tags))
	for i, t := range doc.Tags {
		name := validation.NormalizeTagName(t.Name)
		if err := validation.ValidateTagName(name); err != nil {
			return nil, fmt.Errorf("catalogue tag %q: %w", t.Name, err)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("catalogue tag %q listed twice", name)
		}
		seen[name] = struct{}{}
		if t.Color == "" {
			t.Color = models.DefaultTagColor
		}
		t.Name = name
		doc.Tags[i] = t
	}
	return doc.Tags, nil
}

// OfficialTags creates the catalogue's tags that do not exist yet and marks
// existing ones official. It returns how many tags were created.
func OfficialTags(ctx context.Context, db *gorm.DB) (int, error) {
	items, err := Catalogue()
	if err != nil {
		return 0, err
	}

	created := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			var tag models.Tag
			if err := tx.Unscoped().Where("name = ?", item.Name).Limit(1).Find(&tag).Error; err != nil {
				return err
			}
			if tag.ID == 0 {
				tag = models.Tag{
					Name:        item.Name,
					Description: item.Description,
					Color:       item.Color,
					IsOfficial:  true,
				}
				if err := tx.Create(&tag).Error; err != nil {
					return err
				}
				created++
				continue
			}
			if !tag.IsOfficial {
				if err := tx.Unscoped().Model(&tag).Update("is_official", true).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return created, err
}
