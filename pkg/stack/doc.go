/*
Package stack supplies the memory regions backing fiber stacks.

A Resource is the pluggable allocation backend. A process may install one
custom Resource (plus a default region size) exactly once at startup via
SetDefault; if none is installed, regions come from the Go heap. Allocation
failure is fatal: fiber stacks are foundational infrastructure and there is no
degraded mode to continue in.
*/
package stack
