package framework

// DefaultFramework is the fallback when no dependency matches.
const DefaultFramework = "static"

// detectionRules is the precedence-ordered mapping from a declared
// package dependency to a framework identifier. Meta-frameworks come
// before their base libraries: a project depending on both next and
// react is Next.js, not React.
var detectionRules = []struct {
	pkg string
	id  string
}{
	{"next", "nextjs"},
	{"react", "react"},
	{"vue", "vue"},
	{"@angular/core", "angular"},
	{"express", "node"},
}

// Detect infers a framework identifier from a set of declared package
// dependencies (runtime and dev dependencies merged). Falls back to
// "static" when nothing matches.
func Detect(deps map[string]string) string {
	for _, rule := range detectionRules {
		if _, ok := deps[rule.pkg]; ok {
			return rule.id
		}
	}
	return DefaultFramework
}
