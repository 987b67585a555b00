package models

import (
	"fmt"
	"strings"
)

// Archetype is a closed set of strategic game categories.
type Archetype string

const (
	KingsideAttack      Archetype = "kingside_attack"
	QueensideExpansion  Archetype = "queenside_expansion"
	CentralDomination   Archetype = "central_domination"
	EndgameTechnique    Archetype = "endgame_technique"
	OpenTactical        Archetype = "open_tactical"
	ClosedManeuvering   Archetype = "closed_maneuvering"
	ProphylacticDefense Archetype = "prophylactic_defense"
	PieceHarmony        Archetype = "piece_harmony"
	SacrificialAttack   Archetype = "sacrificial_attack"
	PositionalSqueeze   Archetype = "positional_squeeze"
	MinorityAttack      Archetype = "minority_attack"
	KingHunt            Archetype = "king_hunt"
	FortressDefense     Archetype = "fortress_defense"
	UnknownArchetype    Archetype = "unknown"
)

// ArchetypeDefinition holds the static prior for an archetype: the
// historical win rate of the favored side, the default drawn share,
// which side the pattern usually favors, and how many moves ahead a
// trajectory projection is meaningful.
type ArchetypeDefinition struct {
	Archetype   Archetype
	WinRate     float64
	DrawRate    float64
	FavoredSide Side
	Horizon     int
}

// archetypeDefs is the read-only, process-wide definition table.
var archetypeDefs = map[Archetype]ArchetypeDefinition{
	KingsideAttack:      {KingsideAttack, 0.58, 0.22, SideWhite, 8},
	QueensideExpansion:  {QueensideExpansion, 0.54, 0.28, SideWhite, 12},
	CentralDomination:   {CentralDomination, 0.62, 0.24, SideWhite, 10},
	EndgameTechnique:    {EndgameTechnique, 0.51, 0.38, SideWhite, 16},
	OpenTactical:        {OpenTactical, 0.55, 0.18, SideWhite, 6},
	ClosedManeuvering:   {ClosedManeuvering, 0.48, 0.40, SideWhite, 14},
	ProphylacticDefense: {ProphylacticDefense, 0.45, 0.42, SideBlack, 12},
	PieceHarmony:        {PieceHarmony, 0.56, 0.30, SideWhite, 10},
	SacrificialAttack:   {SacrificialAttack, 0.57, 0.12, SideWhite, 5},
	PositionalSqueeze:   {PositionalSqueeze, 0.53, 0.34, SideWhite, 15},
	MinorityAttack:      {MinorityAttack, 0.50, 0.32, SideBlack, 12},
	KingHunt:            {KingHunt, 0.60, 0.10, SideWhite, 5},
	FortressDefense:     {FortressDefense, 0.40, 0.48, SideBlack, 18},
	UnknownArchetype:    {UnknownArchetype, 0.50, 0.30, SideContested, 10},
}

// DefinitionFor returns the static definition for an archetype,
// falling back to the unknown definition for out-of-set values.
func DefinitionFor(a Archetype) ArchetypeDefinition {
	if def, ok := archetypeDefs[a]; ok {
		return def
	}
	return archetypeDefs[UnknownArchetype]
}

// Archetypes returns every defined archetype including unknown.
func Archetypes() []Archetype {
	out := make([]Archetype, 0, len(archetypeDefs))
	for a := range archetypeDefs {
		out = append(out, a)
	}
	return out
}

// IsValidArchetype reports whether a belongs to the closed set.
func IsValidArchetype(a Archetype) bool {
	_, ok := archetypeDefs[a]
	return ok
}

// ErrUnknownArchetypeLabel is returned by ParseArchetype when a raw
// historical label cannot be mapped onto the closed set.
type ErrUnknownArchetypeLabel struct {
	Label string
}

func (e *ErrUnknownArchetypeLabel) Error() string {
	return fmt.Sprintf("unrecognized archetype label %q", e.Label)
}

// archetypeAliases maps loosely-typed historical labels to the closed set.
var archetypeAliases = map[string]Archetype{
	"kingside attack":      KingsideAttack,
	"kingsideattack":       KingsideAttack,
	"queenside expansion":  QueensideExpansion,
	"queensideexpansion":   QueensideExpansion,
	"central domination":   CentralDomination,
	"centraldomination":    CentralDomination,
	"endgame technique":    EndgameTechnique,
	"endgametechnique":     EndgameTechnique,
	"open tactical":        OpenTactical,
	"opentactical":         OpenTactical,
	"closed maneuvering":   ClosedManeuvering,
	"closedmaneuvering":    ClosedManeuvering,
	"prophylactic defense": ProphylacticDefense,
	"prophylacticdefense":  ProphylacticDefense,
	"piece harmony":        PieceHarmony,
	"pieceharmony":         PieceHarmony,
	"sacrificial attack":   SacrificialAttack,
	"sacrificialattack":    SacrificialAttack,
	"positional squeeze":   PositionalSqueeze,
	"positionalsqueeze":    PositionalSqueeze,
	"minority attack":      MinorityAttack,
	"minorityattack":       MinorityAttack,
	"king hunt":            KingHunt,
	"kinghunt":             KingHunt,
	"fortress defense":     FortressDefense,
	"fortressdefense":      FortressDefense,
	"unknown":              UnknownArchetype,
}

// ParseArchetype maps a raw label onto the closed archetype set. It is a
// total mapping: every input either resolves to a member of the set or
// returns *ErrUnknownArchetypeLabel; it never defaults silently.
func ParseArchetype(label string) (Archetype, error) {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.ReplaceAll(norm, "-", " ")
	norm = strings.ReplaceAll(norm, "_", " ")
	if a, ok := archetypeAliases[norm]; ok {
		return a, nil
	}
	if a := Archetype(strings.ReplaceAll(norm, " ", "_")); IsValidArchetype(a) {
		return a, nil
	}
	return UnknownArchetype, &ErrUnknownArchetypeLabel{Label: label}
}
