package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ssvm/ssvm/pkg/config"
	"github.com/go-ssvm/ssvm/pkg/vm"
)

func findJmodPath() string {
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

func main() {
	configPath := flag.String("config", "", "path to a TOML VM configuration manifest")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: gojvm [-config manifest.toml] <classfile>\n")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	filename := flag.Arg(0)
	dir := filepath.Dir(filename)
	cfg.MainClass = strings.TrimSuffix(filepath.Base(filename), ".class")

	jmodPath := findJmodPath()
	if jmodPath == "" {
		fmt.Fprintf(os.Stderr, "Error: could not find java.base.jmod. Set JAVA_HOME or JAVA_BASE_JMOD.\n")
		os.Exit(1)
	}

	bootstrap := vm.NewJmodClassLoader(jmodPath)
	userCL := vm.NewUserClassLoader(dir, bootstrap)

	machine, err := vm.NewVM(cfg, bootstrap, userCL, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing VM: %v\n", err)
		os.Exit(1)
	}

	if err := machine.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing: %v\n", err)
		os.Exit(1)
	}
}
