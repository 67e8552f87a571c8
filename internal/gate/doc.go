// Package gate implements the minimum re-authentication interval that keeps a bot
// from hammering the identity endpoints.
//
// # Gates
//
//   - [Local] tracks when this process last initiated an authentication cycle.
//   - [Redis] is an optional cluster-wide gate shared by replicas of the same bot,
//     implemented as SET NX PX on key prefix + bot identity.
//
// # What this package must NOT do
//
//   - Sleep or retry; callers decide what to do when a gate is closed.
//   - Be imported outside the botauth module.
package gate
