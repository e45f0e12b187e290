package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/WeCr8/goodbodybucks/internal/models"
)

// RewardAction credits GB$ for a completed task
type RewardAction struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Delta decimal.Decimal `json:"delta_gb"`
}

// ScreenPackage converts GB$ into screen-time minutes
type ScreenPackage struct {
	ID      string          `json:"id"`
	Label   string          `json:"label"`
	Cost    decimal.Decimal `json:"cost_gb"`
	Minutes int             `json:"minutes"`
}

// FoodItem is a purchasable menu item
type FoodItem struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Label    string          `json:"label"`
	Cost     decimal.Decimal `json:"cost_gb"`
}

// TimeConsequence adjusts a member's minutes or lock flag. Exactly one
// of DeltaMinutes, SetMinutes, or Lock is set per entry.
type TimeConsequence struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	DeltaMinutes *int   `json:"delta_minutes,omitempty"`
	SetMinutes   *int   `json:"set_minutes,omitempty"`
	Lock         *bool  `json:"lock,omitempty"`
}

// EndsSession reports whether applying the consequence should also
// deactivate any running session.
func (c TimeConsequence) EndsSession() bool {
	if c.SetMinutes != nil && *c.SetMinutes == 0 {
		return true
	}
	return c.Lock != nil && *c.Lock
}

// MoneyConsequence applies a GB$ delta, typically negative
type MoneyConsequence struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Delta decimal.Decimal `json:"delta_gb"`
}

// SavingsPolicy controls the spending/savings split of allotments.
// Percentages are the savings share, 0-100.
type SavingsPolicy struct {
	Enabled           bool           `json:"enabled"`
	DefaultPercentage int            `json:"default_percentage"`
	Overrides         map[string]int `json:"overrides,omitempty"` // member id -> percentage
}

// PercentageFor returns the clamped savings percentage for a member
func (p SavingsPolicy) PercentageFor(memberID string) int {
	pct := p.DefaultPercentage
	if v, ok := p.Overrides[memberID]; ok {
		pct = v
	}
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Catalog is a family's configured reward/purchase/consequence tables
// plus its savings policy. Stored as a JSON document on the family row.
type Catalog struct {
	Rewards           []RewardAction     `json:"rewards"`
	Screen            []ScreenPackage    `json:"screen"`
	Food              []FoodItem         `json:"food"`
	TimeConsequences  []TimeConsequence  `json:"time_consequences"`
	MoneyConsequences []MoneyConsequence `json:"money_consequences"`
	Savings           SavingsPolicy      `json:"savings"`
}

// Parse decodes a family's catalog document
func Parse(doc string) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// Encode serializes a catalog for storage on the family row
func (c *Catalog) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}
	return string(b), nil
}

// Reward looks up a reward action by id
func (c *Catalog) Reward(id string) (RewardAction, error) {
	for _, r := range c.Rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return RewardAction{}, fmt.Errorf("reward %q: %w", id, models.ErrUnknownCatalogEntry)
}

// ScreenPackage looks up a screen package by id
func (c *Catalog) ScreenPackage(id string) (ScreenPackage, error) {
	for _, p := range c.Screen {
		if p.ID == id {
			return p, nil
		}
	}
	return ScreenPackage{}, fmt.Errorf("screen package %q: %w", id, models.ErrUnknownCatalogEntry)
}

// FoodItem looks up a food item by id
func (c *Catalog) FoodItem(id string) (FoodItem, error) {
	for _, f := range c.Food {
		if f.ID == id {
			return f, nil
		}
	}
	return FoodItem{}, fmt.Errorf("food item %q: %w", id, models.ErrUnknownCatalogEntry)
}

// TimeConsequence looks up a time consequence by id
func (c *Catalog) TimeConsequence(id string) (TimeConsequence, error) {
	for _, t := range c.TimeConsequences {
		if t.ID == id {
			return t, nil
		}
	}
	return TimeConsequence{}, fmt.Errorf("time consequence %q: %w", id, models.ErrUnknownCatalogEntry)
}

// MoneyConsequence looks up a money consequence by id
func (c *Catalog) MoneyConsequence(id string) (MoneyConsequence, error) {
	for _, m := range c.MoneyConsequences {
		if m.ID == id {
			return m, nil
		}
	}
	return MoneyConsequence{}, fmt.Errorf("money consequence %q: %w", id, models.ErrUnknownCatalogEntry)
}
