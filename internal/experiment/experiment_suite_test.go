package experiment_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"
)

func TestExperiment(t *testing.T) {
	log.SetLevel(log.WarnLevel)
	RegisterFailHandler(Fail)
	RunSpecs(t, "Experiment Suite")
}
