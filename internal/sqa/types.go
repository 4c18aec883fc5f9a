package sqa

import (
	"time"

	"github.com/google/uuid"
)

// ProductVersion is the SQA lab's binding of (channel, version key) used to
// group test plan instances.
type ProductVersion struct {
	UUID        uuid.UUID `json:"uuid"`
	Version     string    `json:"version"`
	Channel     string    `json:"channel"`
	Revision    string    `json:"revision"`
	ProductName string    `json:"product.name"`
	ProductUUID string    `json:"product.uuid"`
}

// Addon is a templated job configuration payload describing what to test.
type Addon struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	File      string    `json:"file"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UUID      uuid.UUID `json:"uuid"`
}

// TestPlanInstance is one test execution record correlated to a product
// version.
type TestPlanInstance struct {
	TestPlan          string    `json:"test_plan"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ID                string    `json:"id"`
	EffectivePriority float64   `json:"effective_priority"`
	Status            Status    `json:"status"`
	UUID              uuid.UUID `json:"uuid"`
	ProductUnderTest  string    `json:"product_under_test"`
}

// Build is a single SQA build, used by the insight seeding path.
type Build struct {
	UUID   uuid.UUID `json:"uuid"`
	Status string    `json:"status"`
	Result string    `json:"result"`
}

// StartTestParams carries everything needed to submit one release test for
// one (channel, base, arch) cell.
type StartTestParams struct {
	Channel   string
	Base      string
	Arch      string
	Version   string
	Revisions map[string]string
	Priority  int
	Transform NameTransform
}
