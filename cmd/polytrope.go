/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/astrosolve/spectral/InputParameters"
	"github.com/astrosolve/spectral/polytrope"
	"github.com/astrosolve/spectral/solver"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// polytropeCmd represents the polytrope command
var polytropeCmd = &cobra.Command{
	Use:   "polytrope",
	Short: "Self-gravitating polytrope equilibrium",
	Long: `
Solves the dimensionless polytrope equation lap(Phi) = rho^n with a regular
center and vacuum matching at the surface, optionally rotating at rate omega,

spectral polytrope -n 1.5 --nr 50`,
	Run: func(cmd *cobra.Command, args []string) {
		ip, err := loadParameters(cmd)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		ip.Print()

		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start().Stop()
		}
		RunPolytrope(ip)
	},
}

func init() {
	rootCmd.AddCommand(polytropeCmd)
	polytropeCmd.Flags().Float64("n", 1.5, "polytropic index")
	polytropeCmd.Flags().Float64("omega", 0, "rotation rate in units of the critical rate")
	polytropeCmd.Flags().Int("nr", 50, "radial points per domain")
	polytropeCmd.Flags().Int("nt", 1, "angular points, 1 for spherical symmetry")
	polytropeCmd.Flags().Int("ndomains", 1, "number of radial domains")
	polytropeCmd.Flags().Float64("tol", 1.e-12, "convergence tolerance on the Newton update")
	polytropeCmd.Flags().Int("max-iter", 500, "maximum Newton iterations")
	polytropeCmd.Flags().BoolP("verbose", "v", false, "print per-iteration convergence")
	polytropeCmd.Flags().StringP("input", "I", "", "YAML input file with run parameters")
}

// loadParameters layers the run parameters: built-in defaults, then the
// config file picked up by viper, then an explicit input file, then
// command-line flags.
func loadParameters(cmd *cobra.Command) (*InputParameters.Parameters, error) {
	ip := InputParameters.Defaults()
	if err := viper.Unmarshal(ip); err != nil {
		return nil, fmt.Errorf("unable to apply config file: %v", err)
	}
	if fileName, _ := cmd.Flags().GetString("input"); len(fileName) != 0 {
		data, err := os.ReadFile(fileName)
		if err != nil {
			return nil, fmt.Errorf("unable to read input file %s: %v", fileName, err)
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("unable to parse input file %s: %v", fileName, err)
		}
	}
	if cmd.Flags().Changed("n") {
		ip.PolytropicIndex, _ = cmd.Flags().GetFloat64("n")
	}
	if cmd.Flags().Changed("omega") {
		ip.Omega, _ = cmd.Flags().GetFloat64("omega")
	}
	if cmd.Flags().Changed("nr") {
		ip.Nr, _ = cmd.Flags().GetInt("nr")
	}
	if cmd.Flags().Changed("nt") {
		ip.Nt, _ = cmd.Flags().GetInt("nt")
	}
	if cmd.Flags().Changed("ndomains") {
		ip.NDomains, _ = cmd.Flags().GetInt("ndomains")
	}
	if cmd.Flags().Changed("tol") {
		ip.Tolerance, _ = cmd.Flags().GetFloat64("tol")
	}
	if cmd.Flags().Changed("max-iter") {
		ip.MaxIterations, _ = cmd.Flags().GetInt("max-iter")
	}
	if cmd.Flags().Changed("verbose") {
		ip.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	return ip, nil
}

func RunPolytrope(ip *InputParameters.Parameters) {
	p := polytrope.New(ip.PolytropicIndex, ip.Omega, ip.Nr, ip.Nt)
	p.NDomains = ip.NDomains
	p.Tol = ip.Tolerance
	p.MaxIter = ip.MaxIterations
	p.RelaxThreshold = ip.RelaxThreshold
	p.RelaxFactor = ip.RelaxFactor
	p.Verbose = ip.Verbose

	sol, err := p.Solve()
	if errors.Is(err, solver.ErrNoConvergence) {
		fmt.Printf("No convergence after %d iterations\n", ip.MaxIterations)
		os.Exit(1)
	} else if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("Converged in %d iterations, err = %e\n", sol.Iterations, sol.FinalError)
	fmt.Printf("Lambda           = %.8f\n", sol.Lambda)
	fmt.Printf("Phi(0)           = %.8f\n", sol.Phi0)
	fmt.Printf("Phi(1)           = %.8f\n", sol.Phi.At(-1, 0))
	fmt.Printf("dPhi/dr(0)       = %e\n", sol.BCBottom)
	fmt.Printf("dPhi/dr+Phi (1)  = %e\n", sol.BCTop)
	if res, err := sol.Residual(p); err == nil {
		fmt.Printf("max |residual|   = %e\n", res.MaxAbs())
	}
}
