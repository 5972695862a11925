package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type Parameters struct {
	Title           string  `yaml:"Title"`
	PolytropicIndex float64 `yaml:"PolytropicIndex"`
	Omega           float64 `yaml:"Omega"`
	Nr              int     `yaml:"Nr"`
	Nt              int     `yaml:"Nt"`
	NDomains        int     `yaml:"NDomains"`
	Tolerance       float64 `yaml:"Tolerance"`
	MaxIterations   int     `yaml:"MaxIterations"`
	RelaxThreshold  float64 `yaml:"RelaxThreshold"`
	RelaxFactor     float64 `yaml:"RelaxFactor"`
	Verbose         bool    `yaml:"Verbose"`
}

func Defaults() *Parameters {
	return &Parameters{
		Title:           "polytrope",
		PolytropicIndex: 1.5,
		Omega:           0,
		Nr:              50,
		Nt:              1,
		NDomains:        1,
		Tolerance:       1.e-12,
		MaxIterations:   500,
		RelaxThreshold:  0.01,
		RelaxFactor:     0.2,
	}
}

func (ip *Parameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *Parameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= PolytropicIndex\n", ip.PolytropicIndex)
	fmt.Printf("%8.5f\t\t= Omega\n", ip.Omega)
	fmt.Printf("[%d x %d]\t\t= Nr x Nt\n", ip.Nr, ip.Nt)
	fmt.Printf("[%d]\t\t\t= NDomains\n", ip.NDomains)
	fmt.Printf("%8.2e\t\t= Tolerance\n", ip.Tolerance)
	fmt.Printf("[%d]\t\t\t= MaxIterations\n", ip.MaxIterations)
	fmt.Printf("%8.5f\t\t= RelaxThreshold\n", ip.RelaxThreshold)
	fmt.Printf("%8.5f\t\t= RelaxFactor\n", ip.RelaxFactor)
}
