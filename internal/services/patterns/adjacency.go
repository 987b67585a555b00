package patterns

import "ChessFlow/internal/domain/models"

// archetypeAdjacency lists, per archetype, the strategically related
// archetypes searched at reduced weight when same-archetype recall is
// thin. The table is symmetric by construction.
var archetypeAdjacency = map[models.Archetype][]models.Archetype{
	models.KingsideAttack:      {models.SacrificialAttack, models.KingHunt, models.OpenTactical},
	models.QueensideExpansion:  {models.MinorityAttack, models.PositionalSqueeze},
	models.CentralDomination:   {models.PieceHarmony, models.PositionalSqueeze},
	models.EndgameTechnique:    {models.PositionalSqueeze, models.FortressDefense},
	models.OpenTactical:        {models.KingsideAttack, models.SacrificialAttack},
	models.ClosedManeuvering:   {models.ProphylacticDefense, models.FortressDefense},
	models.ProphylacticDefense: {models.ClosedManeuvering, models.FortressDefense},
	models.PieceHarmony:        {models.CentralDomination, models.PositionalSqueeze},
	models.SacrificialAttack:   {models.KingsideAttack, models.KingHunt, models.OpenTactical},
	models.PositionalSqueeze:   {models.QueensideExpansion, models.CentralDomination, models.EndgameTechnique, models.PieceHarmony},
	models.MinorityAttack:      {models.QueensideExpansion},
	models.KingHunt:            {models.KingsideAttack, models.SacrificialAttack},
	models.FortressDefense:     {models.EndgameTechnique, models.ClosedManeuvering, models.ProphylacticDefense},
}

// AdjacentArchetypes returns the related archetypes for a, or nil for
// unknown.
func AdjacentArchetypes(a models.Archetype) []models.Archetype {
	return archetypeAdjacency[a]
}

// flowAdjacency marks which flow directions count as "related" for the
// partial flow-direction similarity credit.
var flowAdjacency = map[models.FlowDirection][]models.FlowDirection{
	models.FlowKingside:  {models.FlowDiagonal, models.FlowBalanced},
	models.FlowQueenside: {models.FlowDiagonal, models.FlowBalanced},
	models.FlowCentral:   {models.FlowBalanced},
	models.FlowDiagonal:  {models.FlowKingside, models.FlowQueenside},
	models.FlowBalanced:  {models.FlowKingside, models.FlowQueenside, models.FlowCentral},
}

func relatedFlow(a, b models.FlowDirection) bool {
	for _, r := range flowAdjacency[a] {
		if r == b {
			return true
		}
	}
	return false
}
