package semver

import "testing"

const protocolTestPrefix = "semver:protocol_test"

func TestCheckProtocol(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{version: ""},
		{version: "1.0.0"},
		{version: "1.1.0"},
		{version: "1.9.3"},
		{version: " 1.2.0 "},
		{version: "0.9.0", wantErr: true},
		{version: "2.0.0", wantErr: true},
		{version: "not-a-version", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckProtocol(tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("%s - CheckProtocol(%q) err = %v, wantErr %v", protocolTestPrefix, tt.version, err, tt.wantErr)
			}
		})
	}
}

func TestResponseVersionIsSupported(t *testing.T) {
	if err := CheckProtocol(ResponseProtocolVersion); err != nil {
		t.Errorf("%s - response version must be accepted by peers: %v", protocolTestPrefix, err)
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version string
		rng     string
		want    bool
	}{
		{version: "1.2.0", rng: "^1.0.0", want: true},
		{version: "2.0.0", rng: "^1.0.0", want: false},
		{version: "1.2.0", rng: "~1.2.0", want: true},
		{version: "1.3.0", rng: "~1.2.0", want: false},
		{version: "bad", rng: "^1.0.0", want: false},
		{version: "1.0.0", rng: "bad range", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.version+" "+tt.rng, func(t *testing.T) {
			if got := Satisfies(tt.version, tt.rng); got != tt.want {
				t.Errorf("%s - Satisfies(%q, %q) = %v, want %v", protocolTestPrefix, tt.version, tt.rng, got, tt.want)
			}
		})
	}
}

func TestMajor(t *testing.T) {
	if Major("3.1.4") != 3 {
		t.Errorf("%s - Major(3.1.4) = %d", protocolTestPrefix, Major("3.1.4"))
	}
	if Major("garbage") != 1 {
		t.Errorf("%s - Major(garbage) = %d, want 1", protocolTestPrefix, Major("garbage"))
	}
}
