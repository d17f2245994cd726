//go:build cuda

package backend

// ptxKernels holds the elementwise kernels the cuda backend launches. One
// thread per value, grid sized by the caller.
const ptxKernels = `
.version 6.0
.target sm_30
.address_size 64

.visible .entry axpy(
	.param .u64 param_x,
	.param .u64 param_y,
	.param .f32 param_alpha,
	.param .u32 param_n
)
{
	.reg .pred %p<2>;
	.reg .b32 %r<6>;
	.reg .f32 %f<5>;
	.reg .b64 %rd<8>;

	ld.param.u64 %rd1, [param_x];
	ld.param.u64 %rd2, [param_y];
	ld.param.f32 %f1, [param_alpha];
	ld.param.u32 %r1, [param_n];
	mov.u32 %r2, %ctaid.x;
	mov.u32 %r3, %ntid.x;
	mov.u32 %r4, %tid.x;
	mad.lo.s32 %r5, %r2, %r3, %r4;
	setp.ge.u32 %p1, %r5, %r1;
	@%p1 bra AXPY_DONE;
	cvta.to.global.u64 %rd3, %rd1;
	cvta.to.global.u64 %rd4, %rd2;
	mul.wide.u32 %rd5, %r5, 4;
	add.s64 %rd6, %rd3, %rd5;
	add.s64 %rd7, %rd4, %rd5;
	ld.global.f32 %f2, [%rd6];
	ld.global.f32 %f3, [%rd7];
	fma.rn.f32 %f4, %f1, %f2, %f3;
	st.global.f32 [%rd7], %f4;
AXPY_DONE:
	ret;
}

.visible .entry scal(
	.param .u64 param_in,
	.param .u64 param_out,
	.param .f32 param_alpha,
	.param .u32 param_n
)
{
	.reg .pred %p<2>;
	.reg .b32 %r<6>;
	.reg .f32 %f<4>;
	.reg .b64 %rd<8>;

	ld.param.u64 %rd1, [param_in];
	ld.param.u64 %rd2, [param_out];
	ld.param.f32 %f1, [param_alpha];
	ld.param.u32 %r1, [param_n];
	mov.u32 %r2, %ctaid.x;
	mov.u32 %r3, %ntid.x;
	mov.u32 %r4, %tid.x;
	mad.lo.s32 %r5, %r2, %r3, %r4;
	setp.ge.u32 %p1, %r5, %r1;
	@%p1 bra SCAL_DONE;
	cvta.to.global.u64 %rd3, %rd1;
	cvta.to.global.u64 %rd4, %rd2;
	mul.wide.u32 %rd5, %r5, 4;
	add.s64 %rd6, %rd3, %rd5;
	add.s64 %rd7, %rd4, %rd5;
	ld.global.f32 %f2, [%rd6];
	mul.f32 %f3, %f2, %f1;
	st.global.f32 [%rd7], %f3;
SCAL_DONE:
	ret;
}

.visible .entry sigmoid_fwd(
	.param .u64 param_in,
	.param .u64 param_out,
	.param .f32 param_alpha,
	.param .u32 param_n
)
{
	.reg .pred %p<2>;
	.reg .b32 %r<6>;
	.reg .f32 %f<8>;
	.reg .b64 %rd<8>;

	ld.param.u64 %rd1, [param_in];
	ld.param.u64 %rd2, [param_out];
	ld.param.u32 %r1, [param_n];
	mov.u32 %r2, %ctaid.x;
	mov.u32 %r3, %ntid.x;
	mov.u32 %r4, %tid.x;
	mad.lo.s32 %r5, %r2, %r3, %r4;
	setp.ge.u32 %p1, %r5, %r1;
	@%p1 bra SIGF_DONE;
	cvta.to.global.u64 %rd3, %rd1;
	cvta.to.global.u64 %rd4, %rd2;
	mul.wide.u32 %rd5, %r5, 4;
	add.s64 %rd6, %rd3, %rd5;
	add.s64 %rd7, %rd4, %rd5;
	ld.global.f32 %f1, [%rd6];
	neg.f32 %f2, %f1;
	mul.f32 %f3, %f2, 0f3FB8AA3B;
	ex2.approx.f32 %f4, %f3;
	add.f32 %f5, %f4, 0f3F800000;
	rcp.approx.f32 %f6, %f5;
	st.global.f32 [%rd7], %f6;
SIGF_DONE:
	ret;
}

.visible .entry sigmoid_bwd(
	.param .u64 param_out,
	.param .u64 param_topdiff,
	.param .u64 param_bottomdiff,
	.param .u32 param_n
)
{
	.reg .pred %p<2>;
	.reg .b32 %r<6>;
	.reg .f32 %f<7>;
	.reg .b64 %rd<11>;

	ld.param.u64 %rd1, [param_out];
	ld.param.u64 %rd2, [param_topdiff];
	ld.param.u64 %rd3, [param_bottomdiff];
	ld.param.u32 %r1, [param_n];
	mov.u32 %r2, %ctaid.x;
	mov.u32 %r3, %ntid.x;
	mov.u32 %r4, %tid.x;
	mad.lo.s32 %r5, %r2, %r3, %r4;
	setp.ge.u32 %p1, %r5, %r1;
	@%p1 bra SIGB_DONE;
	cvta.to.global.u64 %rd4, %rd1;
	cvta.to.global.u64 %rd5, %rd2;
	cvta.to.global.u64 %rd6, %rd3;
	mul.wide.u32 %rd7, %r5, 4;
	add.s64 %rd8, %rd4, %rd7;
	add.s64 %rd9, %rd5, %rd7;
	add.s64 %rd10, %rd6, %rd7;
	ld.global.f32 %f1, [%rd8];
	ld.global.f32 %f2, [%rd9];
	sub.f32 %f3, 0f3F800000, %f1;
	mul.f32 %f4, %f1, %f3;
	mul.f32 %f5, %f2, %f4;
	st.global.f32 [%rd10], %f5;
SIGB_DONE:
	ret;
}

.visible .entry relu_fwd(
	.param .u64 param_in,
	.param .u64 param_out,
	.param .f32 param_alpha,
	.param .u32 param_n
)
{
	.reg .pred %p<2>;
	.reg .b32 %r<6>;
	.reg .f32 %f<4>;
	.reg .b64 %rd<8>;

	ld.param.u64 %rd1, [param_in];
	ld.param.u64 %rd2, [param_out];
	ld.param.u32 %r1, [param_n];
	mov.u32 %r2, %ctaid.x;
	mov.u32 %r3, %ntid.x;
	mov.u32 %r4, %tid.x;
	mad.lo.s32 %r5, %r2, %r3, %r4;
	setp.ge.u32 %p1, %r5, %r1;
	@%p1 bra RELF_DONE;
	cvta.to.global.u64 %rd3, %rd1;
	cvta.to.global.u64 %rd4, %rd2;
	mul.wide.u32 %rd5, %r5, 4;
	add.s64 %rd6, %rd3, %rd5;
	add.s64 %rd7, %rd4, %rd5;
	ld.global.f32 %f1, [%rd6];
	max.f32 %f2, %f1, 0f00000000;
	st.global.f32 [%rd7], %f2;
RELF_DONE:
	ret;
}

.visible .entry relu_bwd(
	.param .u64 param_in,
	.param .u64 param_topdiff,
	.param .u64 param_bottomdiff,
	.param .u32 param_n
)
{
	.reg .pred %p<3>;
	.reg .b32 %r<6>;
	.reg .f32 %f<4>;
	.reg .b64 %rd<11>;

	ld.param.u64 %rd1, [param_in];
	ld.param.u64 %rd2, [param_topdiff];
	ld.param.u64 %rd3, [param_bottomdiff];
	ld.param.u32 %r1, [param_n];
	mov.u32 %r2, %ctaid.x;
	mov.u32 %r3, %ntid.x;
	mov.u32 %r4, %tid.x;
	mad.lo.s32 %r5, %r2, %r3, %r4;
	setp.ge.u32 %p1, %r5, %r1;
	@%p1 bra RELB_DONE;
	cvta.to.global.u64 %rd4, %rd1;
	cvta.to.global.u64 %rd5, %rd2;
	cvta.to.global.u64 %rd6, %rd3;
	mul.wide.u32 %rd7, %r5, 4;
	add.s64 %rd8, %rd4, %rd7;
	add.s64 %rd9, %rd5, %rd7;
	add.s64 %rd10, %rd6, %rd7;
	ld.global.f32 %f1, [%rd8];
	ld.global.f32 %f2, [%rd9];
	setp.gt.f32 %p2, %f1, 0f00000000;
	selp.f32 %f3, %f2, 0f00000000, %p2;
	st.global.f32 [%rd10], %f3;
RELB_DONE:
	ret;
}
`
