package metrics

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector("inbox-reconciler", nil)

	c.RecordPass(10 * time.Millisecond)
	c.RecordPass(30 * time.Millisecond)
	c.RecordError()
	c.RecordRequest()
	c.RecordPublished()
	c.IncrementCustom("notifications_created")
	c.AddCustom("notifications_created", 4)
	c.AddCustom("notifications_resolved", 0)

	snap := c.GetSnapshot()
	if snap.ServiceName != "inbox-reconciler" || snap.Status != "healthy" {
		t.Errorf("identity = %s/%s", snap.ServiceName, snap.Status)
	}
	if snap.PassesCompleted != 2 || snap.PassErrors != 1 || snap.RequestsServed != 1 || snap.EventsPublished != 1 {
		t.Errorf("counters = %+v", snap)
	}
	if snap.AvgPassLatencyNs != float64(20*time.Millisecond) {
		t.Errorf("AvgPassLatencyNs = %v, want %v", snap.AvgPassLatencyNs, float64(20*time.Millisecond))
	}
	if snap.Counters["notifications_created"] != 5 {
		t.Errorf("notifications_created = %d, want 5", snap.Counters["notifications_created"])
	}
	if _, ok := snap.Counters["notifications_resolved"]; ok {
		t.Error("zero add should not create a counter")
	}
}

func TestCollector_ConcurrentCustom(t *testing.T) {
	c := NewCollector("inbox-service", nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncrementCustom("requests")
		}()
	}
	wg.Wait()
	if got := c.GetSnapshot().Counters["requests"]; got != 50 {
		t.Errorf("requests = %d, want 50", got)
	}
}

func TestCollector_StartStopWithoutRedis(t *testing.T) {
	c := NewCollector("inbox-service", nil)
	c.SetReportInterval(5 * time.Millisecond)
	c.Start(context.Background())
	time.Sleep(15 * time.Millisecond)
	c.Stop()
	c.Stop()
}
