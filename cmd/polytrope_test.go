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
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParameters(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	// Values picked up from the config file override the defaults.
	viper.Set("Nr", 33)
	viper.Set("Omega", 0.3)
	ip, err := loadParameters(polytropeCmd)
	require.NoError(t, err)
	assert.Equal(t, 33, ip.Nr)
	assert.Equal(t, 0.3, ip.Omega)
	assert.Equal(t, 1.5, ip.PolytropicIndex) // default kept

	// Command-line flags override the config file.
	require.NoError(t, polytropeCmd.Flags().Set("nr", "44"))
	ip, err = loadParameters(polytropeCmd)
	require.NoError(t, err)
	assert.Equal(t, 44, ip.Nr)
	assert.Equal(t, 0.3, ip.Omega)
}
