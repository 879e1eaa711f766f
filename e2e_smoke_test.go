//go:build smoke

// Package pdfx_test provides smoke testing for the pdfx annotation backend.
//
// DESIGN DECISION: Smoke Tests Focus on Correctness, Not Performance
//
// These smoke tests are designed to discover correctness bugs, not performance issues.
// All tests ALWAYS verify that created data is accessible and consistent.
// For performance testing, create separate benchmark tests using Go's testing.B.
//
// Test Modes:
//
//  1. Standard Test (default):
//     Each virtual student annotates their own document independently.
//     Use for: Testing normal usage patterns and per-document data integrity.
//
//  2. Shared Document Test (SMOKE_SHARED_DOCUMENT=true):
//     All virtual students annotate the SAME document concurrently, with a
//     staff broadcast highlight in place.
//     Use for: Testing per-user scope isolation under contention. Every
//     student must come back out with exactly their own annotations plus the
//     broadcast tier; any cross-user bleed is a correctness bug.
//
//  3. Scaling Test (SMOKE_ENABLE_SCALING=true):
//     Progressively increases load through defined stages (10->25->50->100 students).
//     Use for: Verifying correctness remains intact as student count increases.
//     NOT for performance measurement - just ensuring the system remains correct at scale.
//
// Data Verification:
//
//	ALL tests verify that every student's annotations can be retrieved and are
//	correct. This is non-negotiable for smoke tests as they exist to catch
//	correctness bugs.
//
// Examples:
//
//	go test -tags=smoke -count=1 -run TestE2ESmoke .        # Standard test, 10 students
//	SMOKE_SHARED_DOCUMENT=true go test -tags=smoke ...      # Test scope isolation under contention
//	SMOKE_ENABLE_SCALING=true go test -tags=smoke ...       # Test correctness at various scales
package pdfx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abconlinecourses/pdfx-xblock/pkg/annotations"
	"github.com/abconlinecourses/pdfx-xblock/pkg/client"
	"github.com/abconlinecourses/pdfx-xblock/pkg/models"
	"github.com/abconlinecourses/pdfx-xblock/pkg/pdfxtesting"
)

// SmokeTestConfig holds configuration for smoke tests
type SmokeTestConfig struct {
	// Basic configuration
	BaseURL      string
	NumStudents  int           // Number of concurrent virtual students
	TestDuration time.Duration // How long to run continuous workloads (0 for scenario-based)
	Timeout      time.Duration // Overall test timeout
	LaunchDelay  time.Duration // Delay between launching students

	// Scaling configuration
	EnableScaling bool          // Whether to progressively scale students
	ScalingStages []int         // Student counts for each scaling stage
	StageCooldown time.Duration // Cooldown between scaling stages

	// Workload configuration
	WorkloadType        WorkloadType // Type of workload to run
	SharedDocument      bool         // Whether students annotate one shared document (tests scope isolation under contention)
	RequiredSuccessRate float64      // Minimum success rate (0-100)
}

// WorkloadType defines the type of workload pattern
type WorkloadType string

const (
	WorkloadScenario   WorkloadType = "scenario"   // Full student scenario
	WorkloadContinuous WorkloadType = "continuous" // Continuous annotation until deadline
	WorkloadBurst      WorkloadType = "burst"      // Burst annotation batches
)

// DefaultConfig returns a default smoke test configuration
func DefaultConfig() *SmokeTestConfig {
	return &SmokeTestConfig{
		BaseURL:             getEnvOrDefault("PDFX_URL", "http://localhost:8080"),
		NumStudents:         getEnvOrDefaultInt("SMOKE_NUM_STUDENTS", 10),
		TestDuration:        getEnvOrDefaultDuration("SMOKE_DURATION", 0),
		Timeout:             getEnvOrDefaultDuration("SMOKE_TIMEOUT", 5*time.Minute),
		LaunchDelay:         getEnvOrDefaultDuration("SMOKE_LAUNCH_DELAY", 10*time.Millisecond),
		EnableScaling:       getEnvOrDefaultBool("SMOKE_ENABLE_SCALING", false),
		ScalingStages:       []int{10, 25, 50, 100},
		StageCooldown:       5 * time.Second,
		WorkloadType:        WorkloadType(getEnvOrDefault("SMOKE_WORKLOAD", string(WorkloadScenario))),
		SharedDocument:      getEnvOrDefaultBool("SMOKE_SHARED_DOCUMENT", false),
		RequiredSuccessRate: getEnvOrDefaultFloat("SMOKE_SUCCESS_RATE", 95.0),
	}
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// TestE2ESmoke is the main parameterized smoke test
// Run with: go test -tags=smoke -count=1 ./... -run TestE2ESmoke
func TestE2ESmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping smoke test in short mode")
	}

	config := DefaultConfig()
	runSmokeTest(t, config)
}

// runSmokeTest executes the smoke test with the given configuration
func runSmokeTest(t *testing.T, config *SmokeTestConfig) {
	// Validate configuration
	require.Greater(t, config.NumStudents, 0, "NumStudents must be positive")
	require.GreaterOrEqual(t, config.RequiredSuccessRate, 0.0, "RequiredSuccessRate must be >= 0")
	require.LessOrEqual(t, config.RequiredSuccessRate, 100.0, "RequiredSuccessRate must be <= 100")

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	// Check server health first
	healthClient := client.NewClient(config.BaseURL)
	health, err := healthClient.Health(ctx)
	require.NoError(t, err, "Server health check failed")
	require.Equal(t, "healthy", health["status"], "Server is not healthy")

	// Print inspection commands for the SurrealDB backend
	printInspectionCommands(t)

	// Log configuration
	t.Logf("=== Smoke Test Configuration ===")
	t.Logf("Base URL: %s", config.BaseURL)
	t.Logf("Number of students: %d", config.NumStudents)
	t.Logf("Workload type: %s", config.WorkloadType)
	t.Logf("Test duration: %v", config.TestDuration)
	t.Logf("Timeout: %v", config.Timeout)
	t.Logf("Required success rate: %.2f%%", config.RequiredSuccessRate)
	t.Logf("Scaling enabled: %v", config.EnableScaling)
	t.Logf("Shared document: %v", config.SharedDocument)

	if config.EnableScaling {
		runScalingTest(t, ctx, config)
	} else if config.SharedDocument {
		runSharedDocumentTest(t, ctx, config)
	} else {
		runStandardTest(t, ctx, config)
	}
}

// registerDocuments signs up a staff actor and registers count documents for
// the test course, one reading per student in standard mode.
func registerDocuments(t *testing.T, ctx context.Context, config *SmokeTestConfig, count int) (*pdfxtesting.VirtualStudent, []*models.Document) {
	staff := pdfxtesting.NewVirtualStaff(0, config.BaseURL)
	require.NoError(t, staff.SignUp(ctx), "Staff signup failed")

	courseID := models.NewCourseID()
	docs := make([]*models.Document, count)
	for i := range docs {
		doc, err := staff.RegisterDocument(ctx, courseID,
			fmt.Sprintf("Smoke Reading %d", i),
			fmt.Sprintf("https://cdn.example.com/readings/smoke-%d.pdf", i))
		require.NoError(t, err, "Failed to register document %d", i)
		docs[i] = doc
	}

	return staff, docs
}

// runStandardTest runs a standard smoke test
func runStandardTest(t *testing.T, ctx context.Context, config *SmokeTestConfig) {
	t.Logf("Starting standard smoke test with %d students", config.NumStudents)

	_, docs := registerDocuments(t, ctx, config, config.NumStudents)

	// Metrics
	var successCount, errorCount int64
	var mu sync.Mutex

	// Create virtual students; index 0 is the staff actor, so students
	// start at 1 to keep account emails distinct.
	students := make([]*pdfxtesting.VirtualStudent, config.NumStudents)
	for i := 0; i < config.NumStudents; i++ {
		students[i] = pdfxtesting.NewVirtualStudent(i+1, config.BaseURL)
	}

	// Channel to collect errors
	errChan := make(chan error, config.NumStudents*10)

	// WaitGroup to wait for all students to complete
	var wg sync.WaitGroup

	// Start time for measuring duration
	startTime := time.Now()

	// Launch virtual students concurrently, each against their own document
	for i := 0; i < config.NumStudents; i++ {
		wg.Add(1)
		go func(student *pdfxtesting.VirtualStudent, doc models.DocumentID) {
			defer wg.Done()

			// Run the appropriate workload
			var err error
			switch config.WorkloadType {
			case WorkloadScenario:
				err = student.RunScenario(ctx, doc)
			case WorkloadContinuous:
				err = runContinuousWorkload(ctx, student, doc, startTime.Add(config.TestDuration))
			case WorkloadBurst:
				err = runBurstWorkload(ctx, student, doc)
			default:
				err = fmt.Errorf("unknown workload type: %s", config.WorkloadType)
			}

			mu.Lock()
			if err != nil {
				errorCount++
				errChan <- fmt.Errorf("student %d failed: %w", student.Index, err)
			} else {
				successCount++
			}
			mu.Unlock()
		}(students[i], docs[i].ID)

		// Launch delay
		if config.LaunchDelay > 0 {
			time.Sleep(config.LaunchDelay)
		}
	}

	// Wait for all students to complete or timeout
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		duration := time.Since(startTime)
		t.Logf("All %d virtual students completed in %v", config.NumStudents, duration)
	case <-ctx.Done():
		t.Fatalf("Test timed out after %v", config.Timeout)
	}

	// Close error channel and collect errors
	close(errChan)
	var errors []error
	for err := range errChan {
		errors = append(errors, err)
	}

	// Calculate and verify success rate
	totalOps := successCount + errorCount
	successRate := float64(successCount) / float64(totalOps) * 100

	// Log results
	duration := time.Since(startTime)
	t.Logf("=== Test Results ===")
	t.Logf("Duration: %v", duration)
	t.Logf("Total students: %d", totalOps)
	t.Logf("Successful: %d", successCount)
	t.Logf("Failed: %d", errorCount)
	t.Logf("Success rate: %.2f%%", successRate)

	// Show sample errors if any
	if len(errors) > 0 {
		maxErrors := 10
		if len(errors) < maxErrors {
			maxErrors = len(errors)
		}
		t.Logf("Sample errors (showing %d of %d):", maxErrors, len(errors))
		for i := 0; i < maxErrors; i++ {
			t.Logf("  Error %d: %v", i+1, errors[i])
		}
	}

	// Verify success rate meets requirement
	require.GreaterOrEqual(t, successRate, config.RequiredSuccessRate,
		"Success rate %.2f%% below required %.2f%%", successRate, config.RequiredSuccessRate)

	// ALWAYS verify data correctness - this is the primary purpose of smoke tests
	if config.WorkloadType == WorkloadScenario {
		t.Log("Performing data verification (always enabled for correctness testing)...")
		verifyStudents := 10
		if config.NumStudents < verifyStudents {
			verifyStudents = config.NumStudents
		}

		for i := 0; i < verifyStudents; i++ {
			idx := i * config.NumStudents / verifyStudents
			student := students[idx]
			if err := student.VerifyOwnData(ctx, docs[idx].ID); err != nil {
				t.Errorf("Verification failed for student %d: %v", student.Index, err)
			}
		}
	}

	t.Log("Smoke test completed successfully!")
}

// runScalingTest runs a test with progressive scaling
func runScalingTest(t *testing.T, ctx context.Context, config *SmokeTestConfig) {
	t.Log("Starting scaling test with progressive load levels")

	for stageNum, numStudents := range config.ScalingStages {
		t.Run(fmt.Sprintf("Stage_%d_%d_students", stageNum+1, numStudents), func(t *testing.T) {
			// Create stage config
			stageConfig := *config
			stageConfig.NumStudents = numStudents
			stageConfig.EnableScaling = false // Prevent recursion

			// Run the stage
			runStandardTest(t, ctx, &stageConfig)

			// Cool down between stages
			if stageNum < len(config.ScalingStages)-1 {
				t.Logf("Cooling down for %v before next stage...", config.StageCooldown)
				time.Sleep(config.StageCooldown)
			}
		})
	}
}

// runSharedDocumentTest simulates an entire class annotating the same
// document at once. Annotations are scoped per user, so unlike collaborative
// editing there is no merge conflict to resolve - the invariant under test
// is isolation: every student must read back exactly their own annotations,
// plus the staff broadcast tier, and nothing from anyone else. A staff
// highlight is broadcast before the run, and the staff aggregate view is
// checked after it.
func runSharedDocumentTest(t *testing.T, ctx context.Context, config *SmokeTestConfig) {
	t.Log("Starting shared document test - simulating a class session")

	staff, docs := registerDocuments(t, ctx, config, 1)
	doc := docs[0].ID

	// Broadcast a staff highlight every student should see
	broadcastPage := 1
	broadcast := models.PageMap{
		models.PageKey(broadcastPage): []models.Annotation{{
			ID:         "smoke-broadcast-1",
			Kind:       models.KindHighlight,
			PageNumber: broadcastPage,
			Data:       models.JSONMap{"rects": []any{map[string]any{"x": 10.0, "y": 10.0, "width": 200.0, "height": 14.0}}, "color": "#fdd835"},
		}},
	}
	raw, err := json.Marshal(broadcast)
	require.NoError(t, err, "Failed to encode broadcast highlight")
	_, err = staff.Client.SaveAnnotations(ctx, doc, &annotations.SaveRequest{StaffHighlights: raw})
	require.NoError(t, err, "Failed to broadcast staff highlight")

	t.Logf("Created shared document %s with broadcast highlight on page %d", doc, broadcastPage)

	// Run all students against the one document
	group := &pdfxtesting.Group{BaseURL: config.BaseURL, Document: doc}
	for i := 0; i < config.NumStudents; i++ {
		group.Students = append(group.Students, pdfxtesting.NewVirtualStudent(i+1, config.BaseURL))
	}

	startTime := time.Now()
	require.NoError(t, group.Run(ctx), "Shared document run failed")
	t.Logf("All %d students completed in %v", config.NumStudents, time.Since(startTime))

	// Every student reads back exactly their own data
	require.NoError(t, group.Verify(ctx), "Per-student isolation verification failed")

	// Every student sees the broadcast highlight
	for _, student := range group.Students {
		bundle, err := student.Client.LoadAnnotations(ctx, doc, false)
		require.NoError(t, err, "Student %d failed to load", student.Index)

		found := false
		for _, ann := range bundle.Highlights[models.PageKey(broadcastPage)] {
			if ann.ID == "smoke-broadcast-1" {
				found = true
				break
			}
		}
		require.True(t, found, "Student %d did not receive the broadcast highlight", student.Index)
	}

	// The staff aggregate view covers every participating student
	aggregate, err := staff.Client.LoadAnnotations(ctx, doc, true)
	require.NoError(t, err, "Staff aggregate load failed")
	for _, student := range group.Students {
		_, ok := aggregate.AllUsers[student.User.ID.String()]
		require.True(t, ok, "Aggregate view is missing student %d (%s)", student.Index, student.User.ID)
	}

	t.Logf("=== Shared Document Test Results ===")
	t.Logf("Students: %d", config.NumStudents)
	t.Logf("Aggregate covers %d users", len(aggregate.AllUsers))
	t.Log("Isolation and broadcast verified for all students")
}

// Workload functions

func runContinuousWorkload(ctx context.Context, student *pdfxtesting.VirtualStudent, doc models.DocumentID, deadline time.Time) error {
	// Sign up first
	if err := student.SignUp(ctx); err != nil {
		return err
	}

	// Continuous annotation until deadline
	page := 1
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			for _, kind := range models.AllKinds {
				if err := student.Annotate(ctx, doc, kind, page, 2); err != nil {
					return err
				}
			}
			if err := student.Revise(ctx, doc); err != nil {
				return err
			}
			page = page%20 + 1

			// Small delay between rounds
			time.Sleep(10 * time.Millisecond)
		}
	}

	return nil
}

func runBurstWorkload(ctx context.Context, student *pdfxtesting.VirtualStudent, doc models.DocumentID) error {
	// Sign up
	if err := student.SignUp(ctx); err != nil {
		return err
	}

	// Create bursts of activity
	for burst := 0; burst < 3; burst++ {
		// Rapid annotation across pages and kinds
		for page := 1; page <= 10; page++ {
			for _, kind := range models.AllKinds {
				if err := student.Annotate(ctx, doc, kind, page, 3); err != nil {
					return err
				}
			}
		}

		// Cool down between bursts
		time.Sleep(1 * time.Second)
	}

	return nil
}

// printInspectionCommands prints useful SurrealQL commands for inspecting the
// test data when the server runs on the surreal backend.
func printInspectionCommands(t *testing.T) {
	separator := strings.Repeat("=", 60)

	// Determine namespace and database from config or use defaults
	ns := getEnvOrDefault("SURREALDB_NS", "pdfx")
	db := getEnvOrDefault("SURREALDB_DB", "pdfx")
	url := getEnvOrDefault("SURREALDB_URL", "ws://localhost:8000")

	// Print connection command separately
	t.Logf(`
%s
To inspect the test data, use these SurrealQL commands:
%s

# Connect to SurrealDB:
surreal sql --conn %s --ns %s --db %s
`, separator, separator, url, ns, db)

	// Print all queries as a single block for easy copy-paste
	t.Logf(`
# Then run these queries to inspect the data:

-- Count all records by table
SELECT count() AS total FROM users GROUP ALL;
SELECT count() AS total FROM documents GROUP ALL;
SELECT count() AS total FROM annotation_records GROUP ALL;
SELECT count() AS total FROM view_settings GROUP ALL;

-- List recent users (last 5)
SELECT id, name, email, created_at FROM users ORDER BY created_at DESC LIMIT 5;

-- Show annotation record distribution per document
SELECT document_id, count() AS record_count FROM annotation_records GROUP BY document_id LIMIT 10;

-- Show scope tier distribution
SELECT scope, count() AS records FROM annotation_records GROUP BY scope;

-- Check for records orphaned from their documents
SELECT * FROM annotation_records WHERE document_id NOT IN (SELECT id FROM documents);

%s`, separator)
}
