// Package plan defines deployment plans and the sequencer that applies them.
//
// A Plan is an ordered list of Steps; ordering is a correctness invariant
// (namespaces before namespaced resources, ConfigMaps and Secrets before the
// Deployments that reference them), so steps never run concurrently.
//
// Each step is either required or best-effort. A required step that exhausts
// its retries halts the sequence and every later step is reported as skipped;
// a best-effort step's failure is recorded and the sequence continues. This
// makes the halt-vs-continue policy a declared property of the plan rather
// than an implicit side effect of shell semantics.
//
// Plans can be built in code (Namespaces, Monitoring, Application) or loaded
// from YAML files:
//
//	name: application
//	steps:
//	  - name: app-config
//	    file: kubernetes/base/configmap.yaml
//	    required: true
//	  - name: app
//	    file: kubernetes/overlays/dev
//	    kustomize: true
//	    required: true
//	    timeout: 60s
//	    attempts: 3
//
// The Report returned by Apply enumerates the outcome of every step:
// applied, failed-required, failed-best-effort, or skipped-after-abort.
package plan
