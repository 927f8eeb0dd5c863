package tools

import (
	"context"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata" // current_time must work on hosts without zoneinfo

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	jsonutil "github.com/kiosk404/warden/pkg/utils/json"
)

const (
	CurrentTimeName     = "current_time"
	PlatformContextName = "platform_context"
)

// CurrentTime returns the current_time tool. now is injectable for tests.
func CurrentTime(now func() time.Time) Definition {
	if now == nil {
		now = time.Now
	}
	return Definition{
		Name:        CurrentTimeName,
		Description: "Return the current date and time, optionally in an IANA time zone such as Europe/Paris.",
		Parameters: []ParameterDef{
			{Name: "timezone", Type: "string", Description: "IANA time zone name (default: UTC)"},
		},
		Handler: func(_ context.Context, input entity.ToolInput, _ entity.PlatformContext) (string, error) {
			zone, _ := input.GetString("timezone")
			if zone == "" {
				zone = "UTC"
			}
			loc, err := time.LoadLocation(zone)
			if err != nil {
				return "", fmt.Errorf("unknown time zone %q", zone)
			}
			return now().In(loc).Format(time.RFC3339), nil
		},
	}
}

// PlatformContext returns the platform_context tool, which reports the
// caller data attached to the request.
func PlatformContext() Definition {
	return Definition{
		Name:        PlatformContextName,
		Description: "Return the platform context of the current request, or a single key of it.",
		Parameters: []ParameterDef{
			{Name: "key", Type: "string", Description: "Key to read (default: the whole context)"},
		},
		RequiresPlatformContext: true,
		Handler: func(_ context.Context, input entity.ToolInput, pc entity.PlatformContext) (string, error) {
			key, _ := input.GetString("key")
			if key == "" {
				keys := make([]string, 0, len(pc))
				for k := range pc {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				return jsonutil.MarshalString(map[string]any{"keys": keys, "context": pc})
			}
			v, ok := pc[key]
			if !ok {
				return "", fmt.Errorf("platform context has no key %q", key)
			}
			return jsonutil.MarshalString(v)
		},
	}
}
