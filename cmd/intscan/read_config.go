package main

import (
	"fmt"
	"io"
	"os"

	"github.com/graph-guard/intscan/pkg/config"
	"github.com/graph-guard/intscan/pkg/profile"
)

func ReadConfig(w io.Writer, configDirPath string) *config.Config {
	conf, err := config.Read(os.DirFS(configDirPath), ".")
	if err != nil {
		fmt.Fprintf(w, "reading config: %s\n", err)
		return nil
	}
	if len(conf.ProfilesEnabled) < 1 {
		fmt.Fprintf(w, "no profiles enabled in %s\n", configDirPath)
		return nil
	}
	return conf
}

// readProfile returns the enabled profile identified by id.
func readProfile(
	w io.Writer,
	configDirPath, id string,
) *profile.Profile {
	conf := ReadConfig(w, configDirPath)
	if conf == nil {
		return nil
	}
	for _, p := range conf.ProfilesEnabled {
		if p.ID == id {
			return p
		}
	}
	for _, p := range conf.ProfilesDisabled {
		if p.ID == id {
			fmt.Fprintf(w, "profile %q is disabled\n", id)
			return nil
		}
	}
	fmt.Fprintf(w, "profile %q not found\n", id)
	return nil
}
