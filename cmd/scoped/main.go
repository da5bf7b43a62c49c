// scoped 作用域生命周期服务
package main

func main() {
	Execute()
}
