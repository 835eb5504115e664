//go:build windows

package webgpu

import (
	"fmt"
	"strings"
)

// workgroupSize is the number of invocations per workgroup. Kernels stride
// over the grid, so any problem size fits in maxWorkgroups groups.
const workgroupSize = 256

// elementwiseMain is the grid-stride loop shared by the element-wise kernels.
// BODY is evaluated once per index i.
const elementwiseMain = `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>, @builtin(num_workgroups) groups: vec3<u32>) {
    let stride = groups.x * 256u;
    for (var i = gid.x; i < params.size; i += stride) {
        BODY
    }
}
`

func withBody(main, body string) string {
	return strings.Replace(main, "BODY", body, 1)
}

// unaryShader computes result[i] from x[i] and the scalar params.value.
func unaryShader(expr string) string {
	return `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    value: f32,
}
@group(0) @binding(2) var<uniform> params: Params;
` + withBody(elementwiseMain, "let v = x[i];\n        result[i] = "+expr+";")
}

// binaryShader computes result[i] from a[i] and b[i].
func binaryShader(expr string) string {
	return `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;
` + withBody(elementwiseMain, "result[i] = "+expr+";")
}

// setShaderCode fills result with params.bits. Float16 fills pack two
// halves per word.
var setShaderCode = `
@group(0) @binding(0) var<storage, read_write> result: array<u32>;

struct Params {
    size: u32,
    bits: u32,
}
@group(0) @binding(1) var<uniform> params: Params;
` + withBody(elementwiseMain, "result[i] = params.bits;")

// rowReduceShader folds one row per workgroup: strided lane partials, then a
// tree reduction in workgroup memory.
func rowReduceShader(term string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> y: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    n: u32,
    d: u32,
    scale: f32,
}
@group(0) @binding(3) var<uniform> params: Params;

var<workgroup> partial: array<f32, 256>;

fn term(a: f32, b: f32) -> f32 {
    %s
}

@compute @workgroup_size(256)
fn main(@builtin(local_invocation_id) lid: vec3<u32>,
        @builtin(workgroup_id) wid: vec3<u32>,
        @builtin(num_workgroups) groups: vec3<u32>) {
    for (var row = wid.x; row < params.n; row += groups.x) {
        let base = row * params.d;
        var acc: f32 = 0.0;
        for (var j = lid.x; j < params.d; j += 256u) {
            acc += term(x[base + j], y[base + j]);
        }
        partial[lid.x] = acc;
        workgroupBarrier();
        for (var s = 128u; s > 0u; s >>= 1u) {
            if (lid.x < s) {
                partial[lid.x] += partial[lid.x + s];
            }
            workgroupBarrier();
        }
        if (lid.x == 0u) {
            result[row] = params.scale * partial[0];
        }
        workgroupBarrier();
    }
}
`, term)
}

// stripedShader is shared by StripedScale and BatchedAxpy; alpha is indexed
// per row of d elements.
func stripedShader(body string) string {
	return `
@group(0) @binding(0) var<storage, read> alpha: array<f32>;
@group(0) @binding(1) var<storage, read> x: array<f32>;
@group(0) @binding(2) var<storage, read_write> y: array<f32>;

struct Params {
    size: u32,
    d: u32,
}
@group(0) @binding(3) var<uniform> params: Params;
` + withBody(elementwiseMain, body)
}

var axpyScaleShader = `
@group(0) @binding(0) var<storage, read> scale: array<f32>;
@group(0) @binding(1) var<storage, read> xy: array<f32>;
@group(0) @binding(2) var<storage, read> norm: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(4) var<uniform> params: Params;
` + withBody(elementwiseMain, "result[i] = -scale[i] * xy[i] / (norm[i] * norm[i]);")

// rowGradientShader binds x, y, the per-row gradient and both outputs.
func rowGradientShader(body string) string {
	return `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read> y: array<f32>;
@group(0) @binding(2) var<storage, read> dout: array<f32>;
@group(0) @binding(3) var<storage, read_write> dx: array<f32>;
@group(0) @binding(4) var<storage, read_write> dy: array<f32>;

const kEps: f32 = 1e-12;

struct Params {
    size: u32,
    d: u32,
}
@group(0) @binding(5) var<uniform> params: Params;
` + withBody(elementwiseMain, body)
}

const l1GradientBody = `let diff = x[i] - y[i];
        let g = dout[i / params.d];
        if (diff < -kEps) {
            dx[i] = -g;
            dy[i] = g;
        } else if (diff > kEps) {
            dx[i] = g;
            dy[i] = -g;
        } else {
            dx[i] = 0.0;
            dy[i] = 0.0;
        }`

const dotGradientBody = `let g = dout[i / params.d];
        dx[i] = y[i] * g;
        dy[i] = x[i] * g;`

const poolParamsWGSL = `
struct Params {
    size: u32,
    h: i32,
    w: i32,
    ph: i32,
    pw: i32,
    kernel_h: i32,
    kernel_w: i32,
    stride_h: i32,
    stride_w: i32,
    pad_t: i32,
    pad_l: i32,
}
`

// maxPoolShader takes the first maximum of each clipped window in row-major
// order; a window without input cells yields -Inf and mask -1.
var maxPoolShader = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> y: array<f32>;
@group(0) @binding(2) var<storage, read_write> mask: array<i32>;
` + poolParamsWGSL + `
@group(0) @binding(3) var<uniform> params: Params;
` + withBody(elementwiseMain, `let index = i32(i);
        let pw = index % params.pw;
        let ph = (index / params.pw) % params.ph;
        let nc = index / params.pw / params.ph;

        var hstart = ph * params.stride_h - params.pad_t;
        var wstart = pw * params.stride_w - params.pad_l;
        let hend = min(hstart + params.kernel_h, params.h);
        let wend = min(wstart + params.kernel_w, params.w);
        hstart = max(hstart, 0);
        wstart = max(wstart, 0);

        let plane = nc * params.h * params.w;
        var maxval = bitcast<f32>(0xff800000u);
        var maxidx = -1;
        for (var h = hstart; h < hend; h++) {
            for (var w = wstart; w < wend; w++) {
                let v = x[plane + h * params.w + w];
                if (v > maxval) {
                    maxval = v;
                    maxidx = h * params.w + w;
                }
            }
        }
        y[i] = maxval;
        mask[i] = maxidx;`)

// maxPoolGradientShader gathers, per input cell, every pooled cell whose
// window can contain it and whose mask selects it.
var maxPoolGradientShader = `
@group(0) @binding(0) var<storage, read> dy: array<f32>;
@group(0) @binding(1) var<storage, read> mask: array<i32>;
@group(0) @binding(2) var<storage, read_write> dx: array<f32>;
` + poolParamsWGSL + `
@group(0) @binding(3) var<uniform> params: Params;
` + withBody(elementwiseMain, `let index = i32(i);
        let w = index % params.w;
        let h = (index / params.w) % params.h;
        let nc = index / params.w / params.h;

        var phstart = 0;
        if (h + params.pad_t >= params.kernel_h) {
            phstart = (h + params.pad_t - params.kernel_h) / params.stride_h + 1;
        }
        let phend = min((h + params.pad_t) / params.stride_h + 1, params.ph);
        var pwstart = 0;
        if (w + params.pad_l >= params.kernel_w) {
            pwstart = (w + params.pad_l - params.kernel_w) / params.stride_w + 1;
        }
        let pwend = min((w + params.pad_l) / params.stride_w + 1, params.pw);

        let base = nc * params.ph * params.pw;
        let selected = h * params.w + w;
        var gradient: f32 = 0.0;
        for (var ph = phstart; ph < phend; ph++) {
            for (var pw = pwstart; pw < pwend; pw++) {
                if (mask[base + ph * params.pw + pw] == selected) {
                    gradient += dy[base + ph * params.pw + pw];
                }
            }
        }
        dx[i] = gradient;`)

// padCommon holds the geometry of a padding launch and the index helpers.
// order is 0 for NCHW and 1 for NHWC; mode is 0 constant, 1 reflect, 2 edge.
const padCommon = `
struct Params {
    size: u32,
    order: u32,
    mode: u32,
    c: i32,
    h: i32,
    w: i32,
    ph: i32,
    pw: i32,
    pad_t: i32,
    pad_l: i32,
    value: f32,
}

struct Cell {
    n: i32,
    c: i32,
    h: i32,
    w: i32,
}

fn decompose(index: i32, height: i32, width: i32) -> Cell {
    var cell: Cell;
    if (params.order == 1u) {
        cell.c = index % params.c;
        var rest = index / params.c;
        cell.w = rest % width;
        rest = rest / width;
        cell.h = rest % height;
        cell.n = rest / height;
    } else {
        cell.w = index % width;
        var rest = index / width;
        cell.h = rest % height;
        rest = rest / height;
        cell.c = rest % params.c;
        cell.n = rest / params.c;
    }
    return cell;
}

fn linear(cell: Cell, height: i32, width: i32) -> i32 {
    if (params.order == 1u) {
        return ((cell.n * height + cell.h) * width + cell.w) * params.c + cell.c;
    }
    return ((cell.n * params.c + cell.c) * height + cell.h) * width + cell.w;
}

// source_cell maps a padded cell to its image cell; h is -1 for a constant fill.
fn source_cell(padded: Cell) -> Cell {
    var cell = padded;
    cell.h = padded.h - params.pad_t;
    cell.w = padded.w - params.pad_l;
    if (params.mode == 1u) {
        cell.h = max(cell.h, -cell.h);
        cell.h = min(cell.h, 2 * params.h - cell.h - 2);
        cell.w = max(cell.w, -cell.w);
        cell.w = min(cell.w, 2 * params.w - cell.w - 2);
    } else if (params.mode == 2u) {
        cell.h = clamp(cell.h, 0, params.h - 1);
        cell.w = clamp(cell.w, 0, params.w - 1);
    } else if (cell.h < 0 || cell.w < 0 || cell.h >= params.h || cell.w >= params.w) {
        cell.h = -1;
    }
    return cell;
}
`

var padShader = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> y: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;
` + padCommon + withBody(elementwiseMain, `let cell = source_cell(decompose(i32(i), params.ph, params.pw));
        if (cell.h < 0) {
            y[i] = params.value;
        } else {
            y[i] = x[linear(cell, params.h, params.w)];
        }`)

// padGradientGatherShader reads, per image cell, the padded cell it was
// copied to. Used by the constant mode.
var padGradientGatherShader = `
@group(0) @binding(0) var<storage, read> dy: array<f32>;
@group(0) @binding(1) var<storage, read_write> dx: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;
` + padCommon + withBody(elementwiseMain, `var cell = decompose(i32(i), params.h, params.w);
        cell.h += params.pad_t;
        cell.w += params.pad_l;
        dx[i] = dy[linear(cell, params.ph, params.pw)];`)

// padGradientScatterShader adds each padded cell into its source image cell.
// WGSL has no float atomics, so the add is a compare-exchange loop on the
// bit pattern.
var padGradientScatterShader = `
@group(0) @binding(0) var<storage, read> dy: array<f32>;
@group(0) @binding(1) var<storage, read_write> dx: array<atomic<u32>>;
@group(0) @binding(2) var<uniform> params: Params;
` + padCommon + `
fn atomic_add_f32(index: i32, v: f32) {
    var old = atomicLoad(&dx[index]);
    loop {
        let r = atomicCompareExchangeWeak(&dx[index], old, bitcast<u32>(bitcast<f32>(old) + v));
        if (r.exchanged) {
            break;
        }
        old = r.old_value;
    }
}
` + withBody(elementwiseMain, `let cell = source_cell(decompose(i32(i), params.ph, params.pw));
        atomic_add_f32(linear(cell, params.h, params.w), dy[i]);`)

// oneHotShader sets one cell per row of the pre-zeroed output.
var oneHotShader = `
@group(0) @binding(0) var<storage, read> indices: array<i32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    index_size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;
` + withBody(elementwiseMain, `result[i * params.index_size + u32(indices[i])] = 1.0;`)
