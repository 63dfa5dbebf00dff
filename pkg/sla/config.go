package sla

import "github.com/chatsync/b2csync/pkg/config"

// ResolveTargets picks the SLA targets to apply to a chat, given its
// provider and priority (spec §9 open question: implement the
// override-capable variant; "two slightly different SLA calculator shapes
// exist ... choose the override-capable variant and keep the simpler one as
// a degenerate case with no overrides").
//
// Specificity order, most specific first: an override matching both
// provider and priority; one matching only provider; one matching only
// priority; otherwise the configured default. An SLAConfig with no
// Overrides always returns Default, which is exactly the simple
// target-only calculator's behavior.
func ResolveTargets(cfg *config.SLAConfig, provider, priority string) config.SLATargets {
	var providerOnly, priorityOnly *config.SLATargets

	for i := range cfg.Overrides {
		o := &cfg.Overrides[i]
		matchesProvider := o.Provider == "" || o.Provider == provider
		matchesPriority := o.Priority == "" || o.Priority == priority

		if o.Provider != "" && o.Priority != "" && o.Provider == provider && o.Priority == priority {
			return o.Targets
		}
		if o.Provider != "" && o.Priority == "" && matchesProvider {
			providerOnly = &o.Targets
		}
		if o.Priority != "" && o.Provider == "" && matchesPriority {
			priorityOnly = &o.Targets
		}
	}

	if providerOnly != nil {
		return *providerOnly
	}
	if priorityOnly != nil {
		return *priorityOnly
	}
	return cfg.Default
}
