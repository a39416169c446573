package model

import "strings"

// ReferenceCode maps an indicator code to its label, pillar, and unit,
// as defined in the reference codes workbook shipped with the dataset.
type ReferenceCode struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Pillar string `json:"pillar"`
	Unit   string `json:"unit,omitempty"`
}

// ReferenceRegistry is an indexed collection of reference codes.
type ReferenceRegistry struct {
	Codes    []ReferenceCode
	byCode   map[string]*ReferenceCode
	byPillar map[string][]*ReferenceCode
}

// NewReferenceRegistry creates a ReferenceRegistry with indexed lookups.
// Codes are matched case-insensitively.
func NewReferenceRegistry(codes []ReferenceCode) *ReferenceRegistry {
	r := &ReferenceRegistry{
		Codes:    codes,
		byCode:   make(map[string]*ReferenceCode, len(codes)),
		byPillar: make(map[string][]*ReferenceCode),
	}
	for i := range r.Codes {
		c := &r.Codes[i]
		r.byCode[strings.ToLower(c.Code)] = c
		if c.Pillar != "" {
			r.byPillar[c.Pillar] = append(r.byPillar[c.Pillar], c)
		}
	}
	return r
}

// ByCode returns the reference code entry for the given code, or nil.
func (r *ReferenceRegistry) ByCode(code string) *ReferenceCode {
	return r.byCode[strings.ToLower(strings.TrimSpace(code))]
}

// ByPillar returns all reference codes under the given pillar.
func (r *ReferenceRegistry) ByPillar(pillar string) []*ReferenceCode {
	return r.byPillar[pillar]
}

// Pillars returns the distinct pillar names in first-seen order.
func (r *ReferenceRegistry) Pillars() []string {
	seen := make(map[string]bool, len(r.byPillar))
	var pillars []string
	for i := range r.Codes {
		p := r.Codes[i].Pillar
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		pillars = append(pillars, p)
	}
	return pillars
}
