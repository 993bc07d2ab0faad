package vendorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	VendorHeader = "X-Vendor-Id"
	RoleHeader   = "X-Actor-Role"
)

const (
	RolePlatformAdmin = "platform_admin"
	RoleVendorAdmin   = "vendor_admin"
	RoleVendorStaff   = "vendor_staff"
)

type vendorKey struct{}
type roleKey struct{}

// WithVendorID stores the active vendor ID in the context.
func WithVendorID(ctx context.Context, vendorID snowflake.ID) context.Context {
	return context.WithValue(ctx, vendorKey{}, vendorID)
}

// VendorIDFromContext returns the vendor ID from context, if set.
func VendorIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	switch typed := ctx.Value(vendorKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	}
	return 0, false
}

// ParseVendorID parses the raw header value. Empty or malformed values
// report false.
func ParseVendorID(raw string) (snowflake.ID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, NormalizeRole(role))
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}

func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
