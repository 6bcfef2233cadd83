package middleware

import "testing"

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{
			path: "/api/bank/connections",
			want: "/api/bank/connections",
		},
		{
			path: "/api/bank/connections/7f9c24e5-2f96-4b86-9c5d-8e1a0d3b4f6a/sync",
			want: "/api/bank/connections/{id}/sync",
		},
		{
			path: "/api/bank/accounts/4c06f1db8c2a4e0fb8d1/transactions",
			want: "/api/bank/accounts/{id}/transactions",
		},
		{
			path: "/api/bank/transactions/9a8b7c6d5e4f30211234/category",
			want: "/api/bank/transactions/{id}/category",
		},
		{
			// short segments stay as-is even when hex-only
			path: "/api/bank/accounts/abc123/transactions",
			want: "/api/bank/accounts/abc123/transactions",
		},
		{
			path: "/health",
			want: "/health",
		},
	}

	for _, tt := range tests {
		if got := normalizeRoute(tt.path); got != tt.want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
