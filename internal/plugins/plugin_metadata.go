package plugins

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/andrei-cloud/go_cmdhost/pkg/plugin"
)

// normalizeInfo validates plugin metadata. Newlines are dropped from the
// name and a missing version becomes plugin.DefaultVersion.
func normalizeInfo(info plugin.Info) (plugin.Info, error) {
	info.Name = strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(info.Name))
	if info.Name == "" {
		return info, ErrMissingMetadata
	}
	info.Description = strings.TrimSpace(info.Description)
	info.Author = strings.TrimSpace(info.Author)

	info.Version = strings.TrimSpace(info.Version)
	if info.Version == "" {
		info.Version = plugin.DefaultVersion
	}
	if _, err := semver.NewVersion(info.Version); err != nil {
		return info, fmt.Errorf("%w %q: %v", ErrInvalidVersion, info.Version, err)
	}

	return info, nil
}

// ShortVersion renders v without trailing zero components: 1.0.0 is "1",
// 1.2.0 is "1.2". Prerelease and metadata suffixes are kept.
func ShortVersion(v string) string {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v
	}

	parts := []uint64{sv.Major(), sv.Minor(), sv.Patch()}
	n := len(parts)
	for n > 1 && parts[n-1] == 0 {
		n--
	}

	segs := make([]string, n)
	for i := range n {
		segs[i] = fmt.Sprint(parts[i])
	}
	out := strings.Join(segs, ".")
	if pre := sv.Prerelease(); pre != "" {
		out += "-" + pre
	}
	if meta := sv.Metadata(); meta != "" {
		out += "+" + meta
	}
	return out
}

// Banner renders the line announced once a plugin is initialized.
func Banner(info plugin.Info) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(info.Name)
	if info.Version != "" {
		b.WriteString(" v")
		b.WriteString(ShortVersion(info.Version))
	}
	b.WriteString("]")
	if info.Description != "" {
		b.WriteString(" ")
		b.WriteString(info.Description)
	}
	if info.Author != "" {
		b.WriteString(" by ")
		b.WriteString(info.Author)
	}
	return b.String()
}
