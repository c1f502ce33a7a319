package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the optional HCL configuration file. Flags win over config
// values.
//
//	root_dir  = "/data/study"
//	tree_dirs = ["/data/trees"]
//
//	variable "subject" {
//	  value = "01"
//	}
type Config struct {
	RootDir  string      `hcl:"root_dir,optional"`
	TreeDirs []string    `hcl:"tree_dirs,optional"`
	Vars     []ConfigVar `hcl:"variable,block"`
}

// ConfigVar is one preset variable assignment.
type ConfigVar struct {
	Name  string `hcl:"name,label"`
	Value string `hcl:"value"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) variables() map[string]string {
	out := make(map[string]string, len(c.Vars))
	for _, v := range c.Vars {
		out[v.Name] = v.Value
	}
	return out
}
