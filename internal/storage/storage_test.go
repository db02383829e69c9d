package storage

import (
	"testing"

	"github.com/athleon/perform/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSkillValue(t *testing.T) {
	breakdown := []models.SkillScore{
		{Skill: "Speed", Value: 70, FullMark: 100},
		{Skill: "Power", Value: 88, FullMark: 100},
	}

	assert.Equal(t, 70, skillValue(breakdown, "Speed"))
	assert.Equal(t, 88, skillValue(breakdown, "Power"))
	// Absent skills snapshot as 0.
	assert.Equal(t, 0, skillValue(breakdown, "Agility"))
	assert.Equal(t, 0, skillValue(nil, "Speed"))
}
