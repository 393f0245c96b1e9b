package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// CropPrice is the mandi price range for one crop
type CropPrice struct {
	Name   string  `toml:"name"`
	Market string  `toml:"market"`
	Unit   string  `toml:"unit"`
	Min    float64 `toml:"min"`
	Max    float64 `toml:"max"`
}

// PriceBoard is the list of crop prices read out in the price branch
type PriceBoard struct {
	Updated string      `toml:"updated"`
	Crops   []CropPrice `toml:"crops"`
}

// DefaultPriceBoard is used when no price board file is configured
func DefaultPriceBoard() *PriceBoard {
	return &PriceBoard{
		Crops: []CropPrice{
			{Name: "Wheat", Market: "Azadpur", Unit: "quintal", Min: 2275, Max: 2450},
			{Name: "Paddy", Market: "Karnal", Unit: "quintal", Min: 2183, Max: 2300},
			{Name: "Onion", Market: "Lasalgaon", Unit: "quintal", Min: 1200, Max: 1800},
			{Name: "Tomato", Market: "Kolar", Unit: "quintal", Min: 800, Max: 1500},
		},
	}
}

// LoadPriceBoard reads a TOML price board. An empty path or missing file yields the defaults.
func LoadPriceBoard(path string) (*PriceBoard, error) {
	if path == "" {
		return DefaultPriceBoard(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPriceBoard(), nil
		}
		return nil, fmt.Errorf("read price board: %w", err)
	}

	var board PriceBoard
	if err := toml.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("decode price board: %w", err)
	}
	if err := board.validate(); err != nil {
		return nil, err
	}
	board.applyDefaults()
	return &board, nil
}

func (b *PriceBoard) validate() error {
	if len(b.Crops) == 0 {
		return errors.New("price board has no crops")
	}
	for i, c := range b.Crops {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("price board crop %d has no name", i+1)
		}
		if c.Min < 0 || c.Max < c.Min {
			return fmt.Errorf("price board crop %q has an invalid range %v-%v", c.Name, c.Min, c.Max)
		}
	}
	return nil
}

func (b *PriceBoard) applyDefaults() {
	for i := range b.Crops {
		if b.Crops[i].Unit == "" {
			b.Crops[i].Unit = "quintal"
		}
	}
}

// Summary is the spoken form of the board
func (b *PriceBoard) Summary() string {
	var sb strings.Builder
	sb.WriteString("Today's mandi prices")
	if b.Updated != "" {
		sb.WriteString(", updated " + b.Updated)
	}
	sb.WriteString(".")

	for _, c := range b.Crops {
		sb.WriteString(" ")
		sb.WriteString(c.Name)
		if c.Market != "" {
			sb.WriteString(" at " + c.Market)
		}
		if c.Min == c.Max {
			fmt.Fprintf(&sb, ": %s rupees per %s.", formatNumber(c.Min), c.Unit)
		} else {
			fmt.Fprintf(&sb, ": %s to %s rupees per %s.", formatNumber(c.Min), formatNumber(c.Max), c.Unit)
		}
	}
	return sb.String()
}
