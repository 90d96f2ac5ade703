package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"koala/pkg/version"
)

// binaries are the commands installed, by package path under ./cmd.
var binaries = []string{"koala", "koalac"}

func main() {
	customPath := flag.String("path", "", "Custom install directory")
	flag.Parse()

	repoRoot, err := os.Getwd()
	if err != nil {
		exitWithError("unable to determine working directory", err)
	}

	targetDir := *customPath
	if targetDir == "" {
		targetDir = defaultInstallDir()
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		exitWithError("unable to create install directory", err)
	}

	ldflags := buildLDFlags(gitCommit(repoRoot), time.Now().UTC())

	for _, name := range binaries {
		if err := install(repoRoot, targetDir, name, ldflags); err != nil {
			exitWithError("installing "+name, err)
		}
	}

	fmt.Println("Koala installed successfully.")
	fmt.Println("Run 'koala help' to verify the CLI is available in your PATH.")
}

func install(repoRoot, targetDir, name, ldflags string) error {
	binaryName := name
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	buildOutput := filepath.Join(repoRoot, binaryName)
	defer os.Remove(buildOutput)

	fmt.Printf("Building %s...\n", name)
	buildCmd := exec.Command("go", "build", "-ldflags", ldflags, "-o", buildOutput, "./cmd/"+name)
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	buildCmd.Dir = repoRoot
	if err := buildCmd.Run(); err != nil {
		return fmt.Errorf("go build failed: %w", err)
	}

	destPath := filepath.Join(targetDir, binaryName)
	fmt.Printf("Installing to %s\n", destPath)
	if err := copyFile(buildOutput, destPath); err != nil {
		return fmt.Errorf("failed to copy binary (try running with elevated permissions): %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(destPath, 0o755); err != nil {
			return fmt.Errorf("failed to set executable bit: %w", err)
		}
	}
	return nil
}

// buildLDFlags stamps the version package with build metadata.
func buildLDFlags(commit string, built time.Time) string {
	const pkg = "koala/pkg/version"
	flags := []string{
		"-X " + pkg + ".Version=" + version.Version,
		"-X " + pkg + ".BuildDate=" + built.Format(time.RFC3339),
	}
	if commit != "" {
		flags = append(flags, "-X "+pkg+".GitCommit="+commit)
	}
	return strings.Join(flags, " ")
}

func gitCommit(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func defaultInstallDir() string {
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, "Programs", "Koala")
		}
		return filepath.Join(os.TempDir(), "Koala")
	default:
		return "/usr/local/bin"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Sync()
}

func exitWithError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
