package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/provider"
	"github.com/dujiao-next/storefront/internal/service"
	"github.com/dujiao-next/storefront/internal/view"
)

// command 一个子命令
type command struct {
	usage string
	run   func(ctx context.Context, cli *cli, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"signup":               {"signup -email E -password P [-username U]", runSignUp},
		"login":                {"login -email E -password P", runLogin},
		"logout":               {"logout", runLogout},
		"whoami":               {"whoami", runWhoAmI},
		"products":             {"products", runProducts},
		"cart":                 {"cart", runCart},
		"cart-add":             {"cart-add PRODUCT_ID [QUANTITY]", runCartAdd},
		"cart-set":             {"cart-set CART_ITEM_ID QUANTITY", runCartSet},
		"cart-inc":             {"cart-inc CART_ITEM_ID", runCartInc},
		"cart-dec":             {"cart-dec CART_ITEM_ID", runCartDec},
		"cart-remove":          {"cart-remove CART_ITEM_ID", runCartRemove},
		"cart-clear":           {"cart-clear", runCartClear},
		"checkout":             {"checkout", runCheckout},
		"orders":               {"orders", runOrders},
		"admin-orders":         {"admin-orders [-status S]", runAdminOrders},
		"admin-order-status":   {"admin-order-status ORDER_ID STATUS", runAdminOrderStatus},
		"admin-products":       {"admin-products", runAdminProducts},
		"admin-product-create": {"admin-product-create -name N -price P [-description D] [-image URL]", runAdminProductCreate},
		"admin-product-update": {"admin-product-update PRODUCT_ID [-name N] [-price P] [-description D] [-image URL]", runAdminProductUpdate},
		"admin-product-delete": {"admin-product-delete PRODUCT_ID [-yes]", runAdminProductDelete},
	}
}

// cli 子命令共享的依赖与输出
type cli struct {
	sf     *provider.Storefront
	out    io.Writer
	notify view.Notifier
	in     io.Reader
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	verbose := flag.Bool("v", false, "debug 日志输出到 stderr")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	cfg := config.Load()
	mode := "release"
	if *verbose {
		mode = "debug"
	}
	logger.Init(mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sf := provider.NewStorefront(cfg)
	defer sf.Close()
	return run(ctx, sf, flag.Args(), os.Stdin, os.Stdout, os.Stderr)
}

// run 执行一个子命令并返回退出码
func run(ctx context.Context, sf *provider.Storefront, args []string, in io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 2
	}
	c := &cli{sf: sf, out: stdout, notify: view.WriterNotifier{W: stderr}, in: in}
	if err := cmd.run(ctx, c, args[1:]); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			for _, field := range sortedKeys(verr.Fields) {
				c.notify.Alert(fmt.Sprintf("%s: %s", field, verr.Fields[field]))
			}
		}
		c.notify.Alert(err.Error())
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: storefront [-v] COMMAND [ARGS]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", service.ErrInvalidID, raw)
	}
	return uint(id), nil
}

func parseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q < 1 {
		return 0, service.ErrInvalidQuantity
	}
	return q, nil
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func optional(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// 身份

func runSignUp(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("signup")
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	username := fs.String("username", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := c.sf.Identity.SignUp(ctx, *email, *password, *username)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed up %s (%s)\n", user.Email, user.Username())
	return nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	session, err := c.sf.Identity.SignIn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s\n", session.User.Username())
	return nil
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	if err := c.sf.Identity.SignOut(ctx); err != nil {
		return err
	}
	c.sf.Cart.ClearLocalCart()
	fmt.Fprintln(c.out, "signed out")
	return nil
}

func runWhoAmI(ctx context.Context, c *cli, _ []string) error {
	user, err := c.sf.Identity.GetUser(ctx)
	if err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintf(tw, "id\t%s\n", user.ID)
	fmt.Fprintf(tw, "email\t%s\n", user.Email)
	fmt.Fprintf(tw, "username\t%s\n", user.Username())
	fmt.Fprintf(tw, "role\t%s\n", user.Role())
	return tw.Flush()
}

// 商品与购物车

func runProducts(ctx context.Context, c *cli, _ []string) error {
	list := view.NewProductListView(c.sf.Products, c.sf.Cart, c.sf.Identity, c.notify)
	defer list.Close()
	if err := list.Init(ctx); err != nil {
		return err
	}
	if !list.Authenticated() {
		fmt.Fprintln(c.out, "sign in to browse products")
		return nil
	}
	if msg := list.Error(); msg != "" {
		return errors.New(msg)
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDESCRIPTION")
	for _, row := range list.Rows() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.ID, row.Name, row.Price, optional(row.Description))
	}
	return tw.Flush()
}

func runCartAdd(ctx context.Context, c *cli, args []string) error {
	if err := requireArgs(args, 1, commands["cart-add"].usage); err != nil {
		return err
	}
	productID, err := parseID(args[0])
	if err != nil {
		return err
	}
	quantity := 1
	if len(args) > 1 {
		if quantity, err = parseQuantity(args[1]); err != nil {
			return err
		}
	}
	list := view.NewProductListView(c.sf.Products, c.sf.Cart, c.sf.Identity, c.notify)
	defer list.Close()
	if err := list.Init(ctx); err != nil {
		return err
	}
	list.SetQuantity(productID, quantity)
	item, err := list.AddToCart(ctx, productID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "cart item %d: product %d x %d\n", item.ID, item.ProductID, item.Quantity)
	return nil
}

func (c *cli) loadCart(ctx context.Context) (*view.CartView, error) {
	cart := view.NewCartView(c.sf.Cart, c.sf.Orders, c.notify)
	if err := cart.Load(ctx); err != nil {
		return nil, err
	}
	return cart, nil
}

func findCartItem(cart *view.CartView, id uint) (models.CartItemWithProduct, error) {
	for _, item := range cart.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.CartItemWithProduct{}, fmt.Errorf("cart item %d not found", id)
}

func (c *cli) printCart(cart *view.CartView) error {
	if len(cart.Items) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
		return nil
	}
	tw := c.table()
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, item := range cart.Items {
		name, price := "(unavailable)", models.Money{}
		if item.Product != nil {
			name, price = item.Product.Name, item.Product.Price
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", item.ID, name, price, item.Quantity, cart.ItemTotal(item))
	}
	fmt.Fprintf(tw, "\t\t\tTOTAL\t%s\n", cart.Total())
	return tw.Flush()
}

func runCart(ctx context.Context, c *cli, _ []string) error {
	cart, err := c.loadCart(ctx)
	if err != nil {
		return err
	}
	return c.printCart(cart)
}

func runCartSet(ctx context.Context, c *cli, args []string) error {
	if err := requireArgs(args, 2, commands["cart-set"].usage); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	quantity, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	cart, err := c.loadCart(ctx)
	if err != nil {
		return err
	}
	item, err := findCartItem(cart, id)
	if err != nil {
		return err
	}
	cart.OnLocalQuantityChange(item, quantity)
	if err := cart.ApplyQuantityChange(ctx, item); err != nil {
		return err
	}
	return c.printCart(cart)
}

func (c *cli) stepQuantity(ctx context.Context, args []string, usage string, up bool) error {
	if err := requireArgs(args, 1, usage); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cart, err := c.loadCart(ctx)
	if err != nil {
		return err
	}
	item, err := findCartItem(cart, id)
	if err != nil {
		return err
	}
	if up {
		_, err = c.sf.Cart.IncrementQuantity(ctx, item.CartItem)
	} else {
		_, err = c.sf.Cart.DecrementQuantity(ctx, item.CartItem)
	}
	if err != nil {
		return err
	}
	if err := cart.Load(ctx); err != nil {
		return err
	}
	return c.printCart(cart)
}

func runCartInc(ctx context.Context, c *cli, args []string) error {
	return c.stepQuantity(ctx, args, commands["cart-inc"].usage, true)
}

func runCartDec(ctx context.Context, c *cli, args []string) error {
	return c.stepQuantity(ctx, args, commands["cart-dec"].usage, false)
}

func runCartRemove(ctx context.Context, c *cli, args []string) error {
	if err := requireArgs(args, 1, commands["cart-remove"].usage); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cart, err := c.loadCart(ctx)
	if err != nil {
		return err
	}
	item, err := findCartItem(cart, id)
	if err != nil {
		return err
	}
	if err := cart.RemoveItem(ctx, item); err != nil {
		return err
	}
	return c.printCart(cart)
}

func runCartClear(ctx context.Context, c *cli, _ []string) error {
	cart, err := c.loadCart(ctx)
	if err != nil {
		return err
	}
	if err := cart.ClearCart(ctx); err != nil {
		return err
	}
	return c.printCart(cart)
}

func runCheckout(ctx context.Context, c *cli, _ []string) error {
	cart, err := c.loadCart(ctx)
	if err != nil {
		return err
	}
	order, err := cart.SubmitOrder(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "order %d %s\n", order.ID, view.FormatStatus(order.Status))
	return nil
}

func runOrders(ctx context.Context, c *cli, _ []string) error {
	orders, err := c.sf.Orders.GetMyOrders(ctx)
	if err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintln(tw, "ORDER\tDATE\tSTATUS\tITEMS\tTOTAL")
	for _, order := range orders {
		total := models.Money{}
		for _, item := range order.Items {
			total = total.Plus(item.LineTotal())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", order.ID, view.FormatDate(order.OrderDate), view.FormatStatus(order.Status), len(order.Items), total)
	}
	return tw.Flush()
}

// 管理端

func runAdminOrders(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("admin-orders")
	status := fs.String("status", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	orders := view.NewAdminOrdersView(c.sf.AdminOrders, c.notify)
	if err := orders.Load(ctx); err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintln(tw, "ORDER\tDATE\tCUSTOMER\tSTATUS\tITEMS\tTOTAL")
	for _, order := range orders.Filter(*status) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			order.ID, view.FormatDate(order.OrderDate), view.UserDisplay(order),
			view.FormatStatus(order.Status), len(order.Items), order.Total())
	}
	return tw.Flush()
}

func runAdminOrderStatus(ctx context.Context, c *cli, args []string) error {
	orders := view.NewAdminOrdersView(c.sf.AdminOrders, c.notify)
	if len(args) < 2 {
		return fmt.Errorf("usage: %s (status: %s)", commands["admin-order-status"].usage, strings.Join(orders.StatusOptions(), ", "))
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	orders.StartEdit(models.OrderWithProducts{ID: id})
	orders.SelectedStatus = args[1]
	if err := orders.SaveStatus(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "order %d -> %s\n", id, view.FormatStatus(strings.ToLower(strings.TrimSpace(args[1]))))
	return nil
}

func (c *cli) productsView() *view.AdminProductsView {
	return view.NewAdminProductsView(c.sf.Products, c.sf.AdminProduct, c.notify, view.PromptConfirmer{In: c.in, Out: c.out})
}

func runAdminProducts(ctx context.Context, c *cli, _ []string) error {
	products := c.productsView()
	if err := products.Load(ctx); err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCREATED\tIMAGE")
	for _, p := range products.Products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Price, view.FormatProductDate(p.CreatedAt), optional(p.ImageURL))
	}
	return tw.Flush()
}

// productFlags 商品表单参数，未设置的字段保持原值
type productFlags struct {
	fs          *flag.FlagSet
	name        *string
	price       *string
	description *string
	image       *string
}

func newProductFlags(name string) *productFlags {
	fs := newFlagSet(name)
	return &productFlags{
		fs:          fs,
		name:        fs.String("name", "", ""),
		price:       fs.String("price", "", ""),
		description: fs.String("description", "", ""),
		image:       fs.String("image", "", ""),
	}
}

func (p *productFlags) apply(form *view.ProductForm) error {
	set := map[string]bool{}
	p.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["name"] {
		form.Name = *p.name
	}
	if set["price"] {
		price, err := models.ParseMoney(*p.price)
		if err != nil {
			return &service.ValidationError{Fields: map[string]string{"price": "Price must be a number"}}
		}
		form.Price = price
	}
	if set["description"] {
		form.Description = *p.description
	}
	if set["image"] {
		form.ImageURL = *p.image
	}
	return nil
}

func (c *cli) saveProduct(ctx context.Context, products *view.AdminProductsView) error {
	product, err := products.SaveProduct(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "product %d %s %s\n", product.ID, product.Name, product.Price)
	return nil
}

func runAdminProductCreate(ctx context.Context, c *cli, args []string) error {
	flags := newProductFlags("admin-product-create")
	if err := flags.fs.Parse(args); err != nil {
		return err
	}
	products := c.productsView()
	products.OpenCreateForm()
	if err := flags.apply(&products.Form); err != nil {
		return err
	}
	return c.saveProduct(ctx, products)
}

func runAdminProductUpdate(ctx context.Context, c *cli, args []string) error {
	if err := requireArgs(args, 1, commands["admin-product-update"].usage); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	flags := newProductFlags("admin-product-update")
	if err := flags.fs.Parse(args[1:]); err != nil {
		return err
	}
	current, err := c.sf.Products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	products := c.productsView()
	products.OpenEditForm(*current)
	if err := flags.apply(&products.Form); err != nil {
		return err
	}
	return c.saveProduct(ctx, products)
}

func runAdminProductDelete(ctx context.Context, c *cli, args []string) error {
	if err := requireArgs(args, 1, commands["admin-product-delete"].usage); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fs := newFlagSet("admin-product-delete")
	yes := fs.Bool("yes", false, "")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	products := c.productsView()
	if *yes {
		products = view.NewAdminProductsView(c.sf.Products, c.sf.AdminProduct, c.notify, nil)
	}
	deleted, err := products.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(c.out, "canceled")
		return nil
	}
	fmt.Fprintf(c.out, "product %d deleted\n", id)
	return nil
}
