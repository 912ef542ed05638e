package middleware

import "testing"

func TestAllowOrigin(t *testing.T) {
	cases := []struct {
		allow  []string
		origin string
		want   string
		ok     bool
	}{
		{nil, "", "*", true},
		{nil, "http://ui", "http://ui", true},
		{[]string{"*"}, "http://ui", "http://ui", true},
		{[]string{"http://desk"}, "http://ui", "", false},
		{[]string{"http://desk", "http://ui"}, "http://ui", "http://ui", true},
	}
	for _, tc := range cases {
		got, ok := allowOrigin(tc.allow, tc.origin)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("allowOrigin(%v, %q) = %q %v", tc.allow, tc.origin, got, ok)
		}
	}
}
