/*
Package esdr compiles editable flowgraphs into running pipelines and
controls them while they run.

Concept

A graph is assembled from a closed set of block kinds. Every kind
declares its ports: stream ports carry samples between blocks and scalar
ports configure the block. Stream inputs are satisfied by connections,
scalar inputs by constants:

    Soapy SDR -> Shift -> Resamp 1 -> FM Demodulator -> Resamp 2 -> Audio Output

Compilation

Compiler validates the graph before any engine resource is used. Then it
instantiates every node, registers it with the engine, connects the edges
and starts the engine. Blocks registered by a failed compilation are
removed from the engine before the error is returned.

Live updates

Pipeline is the running result of the compilation. Scalar inputs that are
declared updatable can be changed while the pipeline runs:

    p, err := compiler.CompileAndStart(ctx, g)
    if err != nil {
        // handle error
    }
    err = p.UpdateScalar(ctx, source, "freq", 100000000)
    ...
    err = p.Stop(ctx)

Updates of fields that are not updatable and updates after Stop are
ignored. Stop can be called multiple times.
*/
package esdr
