package main

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("00:01:01.12"))
	assert.Equal(t, int64(60*60*1000+60*1000+1000+120), parseDuration("01:01:01.12"))
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("1:01.12"))
	assert.Equal(t, int64(120), parseDuration("0:00.12"))
	assert.Equal(t, int64(120), parseDuration("00:00:00.12"))
}

func TestParseLines(t *testing.T) {
	assert.Equal(t, int64(2*60*1000+5000+300), parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 2:05.30"))
	assert.Equal(t, float32(2), parseMemoryLine("\tMaximum resident set size (kbytes): 2048"))
	assert.Equal(t, int64(97), parseCpuPercentageLine("\tPercent of CPU this job got: 97%"))
}

func TestGetTests(t *testing.T) {
	// Arrange
	directory := t.TempDir()
	input := `{
		"Department": {"Abbrev": "INFO"},
		"Periods": [{"Id": 1, "Start": "2024-09-02", "End": "2024-09-08"}],
		"Courses": [{"Id": 1}, {"Id": 2}],
		"Tutors": [{"Id": 1, "Username": "AB"}]
	}`
	require.NoError(t, os.WriteFile(path.Join(directory, "b.json"), []byte(input), 0666))
	require.NoError(t, os.WriteFile(path.Join(directory, "a.json"), []byte(input), 0666))
	require.NoError(t, os.WriteFile(path.Join(directory, "notes.txt"), []byte("skipped"), 0666))

	// Act
	tests := getTests(directory)

	// Assert
	require.Len(t, tests, 2)
	assert.Equal(t, path.Join(directory, "a.json"), tests[0].Name)
	assert.Equal(t, TestMetadata{Name: tests[1].Name, Periods: 1, Courses: 2, Tutors: 1}, tests[1])
}
