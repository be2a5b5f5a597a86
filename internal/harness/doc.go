// Package harness runs scripted quiz sessions against the real state
// machine and compares their traces with golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: perfect-calibrated
//	description: "What this scenario validates"
//	settings:
//	  team: Owls
//	  rounds: 3
//	  predicted_score: 9
//	claims:                  # or deck: path/to/deck.yaml
//	  - { id: c1, text: "...", answer: "TRUE" }
//	remote:
//	  down: false            # every remote write fails when true
//	  fail: [submit_claim]   # or fail only these operations
//	rounds:
//	  - verdict: "TRUE"
//	    confidence: 3
//	    hints: [h1]
//	    expect: { correct: true, points: 1 }
//	reflection: "optional debrief reflection"
//	sync: 1                  # sync passes after the game
//	expect:
//	  phase: debrief
//	  score: 9
//	  final_score: 12
//	  calibration_bonus: 3
//	  achievements: [first_catch, calibrated]
//	  queued: 0
//
// Decoding is strict: unknown keys are rejected so typos fail loudly.
//
// # Determinism
//
// Every run uses an in-memory kv store, a fake clock frozen at a fixed
// instant, sequential ids and an in-process fake remote. Effects are
// flushed after each step, so traces are byte-for-byte reproducible.
//
// # Golden Files
//
// RunWithGolden writes the trace as indented JSON to
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
