package checkout

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)
	number := NewOrderNumber()
	assert.Regexp(t, pattern, number)
	assert.Contains(t, number, time.Now().UTC().Format("20060102"))
}

func TestNewOrderNumberVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		number := NewOrderNumber()
		assert.False(t, seen[number], "repeated order number %s", number)
		seen[number] = true
	}
}
