// Package rail implements the settlement-network adapters and the
// deterministic rail selector. Each adapter enforces its network's limits,
// currency whitelist, operating window and auxiliary identifiers, computes
// the network fee, and executes submissions through an injected transport.
package rail
