package config

import "testing"

func TestGetEnvFloatDefault_InvalidValueFallsBack(t *testing.T) {
	t.Setenv("NUMA_TEST_FLOAT", "not-a-number")
	got := getEnvFloatDefault("NUMA_TEST_FLOAT", 0.7)
	if got != 0.7 {
		t.Errorf("expected fallback 0.7, got %v", got)
	}
}

func TestGetEnvFloatDefault_ValidValueParsed(t *testing.T) {
	t.Setenv("NUMA_TEST_FLOAT", "0.85")
	got := getEnvFloatDefault("NUMA_TEST_FLOAT", 0.7)
	if got != 0.85 {
		t.Errorf("expected 0.85, got %v", got)
	}
}

func TestGetEnvIntDefault_MissingUsesFallback(t *testing.T) {
	got := getEnvIntDefault("NUMA_TEST_MISSING_INT", 8000)
	if got != 8000 {
		t.Errorf("expected fallback 8000, got %v", got)
	}
}

func TestLoad_MissingDatabaseURLErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}
