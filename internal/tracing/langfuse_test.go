package tracing

import "testing"

func TestConfigEnabled(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"public only", Config{PublicKey: "pk"}, false},
		{"secret only", Config{SecretKey: "sk"}, false},
		{"both", Config{PublicKey: "pk", SecretKey: "sk"}, true},
	}
	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Errorf("%s: Enabled() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()
	h, flush, ok := Setup(Config{})
	if ok || h != nil || flush != nil {
		t.Errorf("disabled Setup returned handler=%v flush=%v ok=%v", h, flush != nil, ok)
	}
	// Install must hand back a callable no-op.
	Install(Config{})()
}
