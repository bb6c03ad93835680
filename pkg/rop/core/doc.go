// Package core contains the block protocol the pipelines are built on:
// targets that buffer messages and process them with a bounded pool of
// workers, sources that offer their output to linked targets, and the
// offer/reserve/consume/release handshake between the two. It does not
// define business logic; the rail package layers two-rail routing on top.
//
// Key constructs:
// - Target/Source/Propagator/Supplier: capability interfaces of a block
// - ActionBlock, TransformBlock: worker-pool blocks
// - Producer/FromValues and Collector/Gather: pipeline entry and exit
// - LinkWhen, Switch: predicated and dispatching links
// - Completion, WhenAll: completion futures and their join
// - Composite: aggregate teardown of link handles
// - BlockOptions and WithWorkerOptions/WithCapacityOptions: configuration
package core
