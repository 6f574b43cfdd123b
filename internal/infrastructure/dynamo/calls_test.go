package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestCreatedBefore(t *testing.T) {
	cutoff := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	row := func(createdAt string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"created_at": &types.AttributeValueMemberS{Value: createdAt},
		}
	}

	tests := []struct {
		name string
		item map[string]types.AttributeValue
		want bool
	}{
		{"whole second before cutoff", row("2026-09-01T09:59:59Z"), true},
		{"fractional second before cutoff", row("2026-09-01T09:59:59.999999999Z"), true},
		{"exactly at cutoff", row("2026-09-01T10:00:00Z"), false},
		// A lexicographic string compare would call this one older than the
		// cutoff because '.' sorts before 'Z'.
		{"fractional second after cutoff", row("2026-09-01T10:00:00.5Z"), false},
		{"unparseable timestamp", row("yesterday"), false},
		{"missing timestamp", map[string]types.AttributeValue{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, createdBefore(tc.item, cutoff))
		})
	}
}
