package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
)

// RenderConfig tunes the heatmap rendering. Unknown JSON fields are
// tolerated; missing fields fall back to their defaults.
type RenderConfig struct {
	TileSize       int      `json:"tileSize" default:"256" validate:"required,min=1"`
	Radius         int      `json:"radius" default:"32" validate:"required,min=1"`
	Intensity      float64  `json:"intensity" default:"1" validate:"required,gt=0,lte=1"`
	Blur           float64  `json:"blur" default:"1" validate:"required,gt=0,lte=1"`
	Colors         []string `json:"colors" validate:"omitempty,min=2,dive,startswith=#"`
	MaxOccurrence  int      `json:"maxOccurrence" validate:"omitempty,min=1"`
	SaveEmptyTiles bool     `json:"saveEmptyTiles"`
	Background     string   `json:"background" validate:"omitempty,startswith=#"`
}

func (c *RenderConfig) UnmarshalJSON(data []byte) error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("setting config defaults: %w", err)
	}
	type tempRenderConfig RenderConfig // prevent recursion
	temp := tempRenderConfig(*c)
	if _, err := marshmallow.Unmarshal(data, &temp); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	*c = RenderConfig(temp)
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadRenderConfig reads a config file, or returns the defaults when path
// is empty.
func loadRenderConfig(path string) (RenderConfig, error) {
	var cfg RenderConfig
	if path == "" {
		if err := json.Unmarshal([]byte("{}"), &cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
