package kafka

import (
	"context"
	"reflect"
	"testing"
)

func TestParseBrokers(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{DefaultBroker}},
		{"   ", []string{DefaultBroker}},
		{"a:9092", []string{"a:9092"}},
		{" a:9092 , ,b:9093,", []string{"a:9092", "b:9093"}},
	}
	for _, tt := range tests {
		if got := ParseBrokers(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseBrokers(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNoBrokers(t *testing.T) {
	ctx := context.Background()
	if err := WaitForBroker(ctx, nil); err == nil {
		t.Fatal("WaitForBroker with no brokers should fail")
	}
	if err := EnsureTopic(ctx, nil, "t", 1); err == nil {
		t.Fatal("EnsureTopic with no brokers should fail")
	}
}

func TestNewWriterTopic(t *testing.T) {
	w := NewWriter([]string{"a:9092"}, DefaultAlertTopic)
	defer w.Close()
	if w.Topic != DefaultAlertTopic {
		t.Fatalf("topic = %q", w.Topic)
	}
}
