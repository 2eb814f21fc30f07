package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// runDoctor checks the toolchain and returns an exit code.
func runDoctor() int {
	fmt.Println("Bolide Toolchain Doctor")
	fmt.Println("=======================")
	fmt.Println()

	allOk := true

	goVersion := runtime.Version()
	fmt.Printf("Go:      %s", goVersion)
	if checkGoVersion(goVersion) {
		fmt.Println(" ✓")
	} else {
		fmt.Println(" ✗ (need 1.23+)")
		allOk = false
	}

	// clang links the output of compile against the runtime archive.
	clangVersion, clangOk := checkTool("clang", "--version")
	fmt.Printf("clang:   %s", clangVersion)
	if clangOk {
		fmt.Println(" ✓")
	} else {
		fmt.Println(" (needed to link compiled programs, not found)")
	}

	llcVersion, llcOk := checkTool("llc", "--version")
	fmt.Printf("llc:     %s", llcVersion)
	if llcOk {
		fmt.Println(" ✓")
	} else {
		fmt.Println(" (optional, not found)")
	}

	fmt.Println()
	fmt.Printf("target:  %s\n", cfg.TargetTriple)
	fmt.Printf("pool:    %d workers\n", cfg.EffectivePoolSize(0))
	fmt.Printf("imports: %s\n", cfg.ImportPath)

	fmt.Println()
	if allOk {
		fmt.Println("All required tools available!")
		return exitOK
	}
	fmt.Println("Some required tools are missing.")
	return exitError
}

// checkGoVersion returns true if the Go version is 1.23 or higher.
func checkGoVersion(v string) bool {
	// "go1.23.3" -> "1", "23"
	if !strings.HasPrefix(v, "go") {
		return false
	}
	parts := strings.Split(strings.TrimPrefix(v, "go"), ".")
	if len(parts) < 2 {
		return false
	}

	major, minor := parts[0], parts[1]
	if major == "1" {
		var minorNum int
		fmt.Sscanf(minor, "%d", &minorNum)
		return minorNum >= 23
	}
	return major >= "2"
}

// checkTool runs a tool with the given arguments and returns the first line of output.
func checkTool(name string, args ...string) (string, bool) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if len(line) > 60 {
		line = line[:57] + "..."
	}
	return line, true
}
