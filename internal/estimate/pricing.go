package estimate

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// PricingMode selects the pricing strategy.
type PricingMode string

const (
	// ModeStory prices purely by story count. This is the canonical table.
	ModeStory PricingMode = "story"
	// ModeMaterial prices by roof material base price times a story
	// multiplier.
	ModeMaterial PricingMode = "material"
)

// PriceBook holds the configured pricing tables. Loaded from YAML so price
// changes never require a deploy.
type PriceBook struct {
	Mode               PricingMode          `yaml:"mode"`
	StoryPrices        map[int]float64      `yaml:"storyPrices"`
	MaterialBasePrices map[Material]float64 `yaml:"materialBasePrices"`
	StoryMultipliers   map[int]float64      `yaml:"storyMultipliers"`
}

// Quote is a priced estimate.
type Quote struct {
	FinalSquares   int
	PricePerSquare float64
	Total          float64
}

// DefaultPriceBook returns the built-in story-tiered table.
func DefaultPriceBook() *PriceBook {
	return &PriceBook{
		Mode: ModeStory,
		StoryPrices: map[int]float64{
			1: 500,
			2: 575,
			3: 650,
		},
		MaterialBasePrices: map[Material]float64{
			MaterialAsphalt: 500,
			MaterialMetal:   750,
			MaterialTile:    625,
			MaterialClay:    675,
		},
		StoryMultipliers: map[int]float64{
			1: 1.0,
			2: 1.15,
			3: 1.3,
		},
	}
}

// LoadPriceBook reads a price book from a YAML file. An empty path yields the
// default book.
func LoadPriceBook(path string) (*PriceBook, error) {
	if path == "" {
		return DefaultPriceBook(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price book: %w", err)
	}

	book := &PriceBook{}
	if err := yaml.Unmarshal(data, book); err != nil {
		return nil, fmt.Errorf("parse price book: %w", err)
	}
	if book.Mode == "" {
		book.Mode = ModeStory
	}

	if err := book.Validate(); err != nil {
		return nil, err
	}
	return book, nil
}

// Validate checks that every story count the normalizer can produce has a
// price under the configured mode.
func (b *PriceBook) Validate() error {
	switch b.Mode {
	case ModeStory:
		for stories := 1; stories <= 3; stories++ {
			if b.StoryPrices[stories] <= 0 {
				return fmt.Errorf("price book: missing story price for %d stories", stories)
			}
		}
	case ModeMaterial:
		for _, material := range []Material{MaterialAsphalt, MaterialMetal, MaterialTile, MaterialClay} {
			if b.MaterialBasePrices[material] <= 0 {
				return fmt.Errorf("price book: missing base price for material %q", material)
			}
		}
		for stories := 1; stories <= 3; stories++ {
			if b.StoryMultipliers[stories] <= 0 {
				return fmt.Errorf("price book: missing story multiplier for %d stories", stories)
			}
		}
	default:
		return fmt.Errorf("price book: unknown mode %q", b.Mode)
	}
	return nil
}

// PricePerSquare returns the unit price for the story count and material.
func (b *PriceBook) PricePerSquare(stories int, material Material) (float64, error) {
	switch b.Mode {
	case ModeMaterial:
		base := b.MaterialBasePrices[material]
		multiplier := b.StoryMultipliers[stories]
		if base <= 0 || multiplier <= 0 {
			return 0, fmt.Errorf("no price configured for material %q at %d stories", material, stories)
		}
		return base * multiplier, nil
	default:
		price := b.StoryPrices[stories]
		if price <= 0 {
			return 0, fmt.Errorf("no price configured for %d stories", stories)
		}
		return price, nil
	}
}

// PriceQuote prices the final square count, rounding the total to cents.
func (b *PriceBook) PriceQuote(finalSquares int, stories int, material Material) (Quote, error) {
	price, err := b.PricePerSquare(stories, material)
	if err != nil {
		return Quote{}, err
	}

	total := float64(finalSquares) * price
	return Quote{
		FinalSquares:   finalSquares,
		PricePerSquare: price,
		Total:          math.Round(total*100) / 100,
	}, nil
}
