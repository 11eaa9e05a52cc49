package memory

import (
	"testing"

	"github.com/standuphq/standup-engine/internal/store"
	"github.com/standuphq/standup-engine/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
