package circuitbreaker

import (
	"testing"
	"time"
)

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 1, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Fatal("circuit tripped below the threshold")
	}

	// A success in between resets the streak.
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Fatal("success did not reset the failure streak")
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatal("circuit did not open at the threshold")
	}
	if cb.AllowRequest() {
		t.Fatal("open circuit allowed a request")
	}
}

func TestHalfOpenProbing(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	if cb.AllowRequest() {
		t.Fatal("open circuit allowed a request before the timeout")
	}

	time.Sleep(20 * time.Millisecond)
	if !cb.AllowRequest() {
		t.Fatal("expired circuit did not move to half-open")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", cb.GetState())
	}

	// One success is not enough to close with successThreshold 2.
	cb.RecordSuccess()
	if cb.GetState() != StateHalfOpen {
		t.Fatal("circuit closed before the success threshold")
	}
	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Fatal("circuit did not close after enough probe successes")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if !cb.AllowRequest() {
		t.Fatal("expired circuit did not move to half-open")
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatal("failed probe did not reopen the circuit")
	}
	if cb.AllowRequest() {
		t.Fatal("reopened circuit allowed a request")
	}
}
