// Package tunnel manages background port-forwarding processes to cluster
// services.
//
// Each forward is owned by a Handle whose process can only be terminated
// through Close, and a Manager tracks every open handle so that CloseAll can
// release them on any shutdown path. Liveness is verified right after spawn;
// end-to-end connectivity is out of scope.
package tunnel
