package dynamic

import "testing"

type fakeBulkSource struct {
	values map[string]map[string]interface{}
	err    error
}

func (f *fakeBulkSource) Values(interfaceID string) (map[string]map[string]interface{}, error) {
	return f.values, f.err
}

func TestCentralDataCacheRefreshAndValue(t *testing.T) {
	c := NewCentralDataCache()
	src := &fakeBulkSource{values: map[string]map[string]interface{}{
		"VCU1:1": {"LEVEL": 0.5},
	}}
	if err := c.Refresh("hmip", src); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	v, ok := c.Value("hmip", "VCU1:1", "LEVEL")
	if !ok || v.(float64) != 0.5 {
		t.Fatalf("unexpected value: %v, %v", v, ok)
	}
	if _, ok := c.Value("hmip", "VCU1:1", "STATE"); ok {
		t.Fatal("expected unknown parameter to report false")
	}
	if _, ok := c.Value("bidcos-rf", "VCU1:1", "LEVEL"); ok {
		t.Fatal("expected unknown interface to report false")
	}
}

func TestCentralDataCacheSetOverridesAndCreatesEntries(t *testing.T) {
	c := NewCentralDataCache()
	c.Set("hmip", "VCU1:1", "LEVEL", 0.25)
	v, ok := c.Value("hmip", "VCU1:1", "LEVEL")
	if !ok || v.(float64) != 0.25 {
		t.Fatalf("unexpected value after Set: %v, %v", v, ok)
	}

	src := &fakeBulkSource{values: map[string]map[string]interface{}{
		"VCU1:1": {"LEVEL": 0.75},
	}}
	c.Refresh("hmip", src)
	v, _ = c.Value("hmip", "VCU1:1", "LEVEL")
	if v.(float64) != 0.75 {
		t.Fatalf("expected refresh to replace the interface's entire snapshot, got %v", v)
	}
}

func TestCentralDataCacheRefreshPropagatesSourceError(t *testing.T) {
	c := NewCentralDataCache()
	src := &fakeBulkSource{err: errBoom}
	if err := c.Refresh("hmip", src); err != errBoom {
		t.Fatalf("expected source error to propagate, got %v", err)
	}
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}
