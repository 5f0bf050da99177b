package temporal

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestHousekeepingSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Housekeeping Workflow Suite")
}
